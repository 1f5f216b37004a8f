package sessionguard

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected logins.
	MetricLoginFailure
	// MetricValidateSuccess counts accepted access tokens.
	MetricValidateSuccess
	// MetricValidateFailure counts rejected access tokens.
	MetricValidateFailure
	// MetricRefreshSuccess counts completed rotations.
	MetricRefreshSuccess
	// MetricRefreshFailure counts rotations rejected for invalid or
	// malformed tokens.
	MetricRefreshFailure
	// MetricReplayDetected counts blacklist hits during rotation — the
	// security signal, tracked apart from ordinary refresh failures.
	MetricReplayDetected
	// MetricDeviceMismatch counts rotations rejected for user-agent drift.
	MetricDeviceMismatch
	// MetricLocationMismatch counts rotations rejected for IP drift.
	MetricLocationMismatch
	// MetricLogout counts revocations through the logout path.
	MetricLogout
	// MetricAdmitAllowed counts requests passed by the admission
	// controller.
	MetricAdmitAllowed
	// MetricAdmitRejected counts requests rejected by the admission
	// controller, rate-limit and fail-closed store errors alike.
	MetricAdmitRejected
	// MetricStoreFailure counts credential-store round trips that failed.
	MetricStoreFailure
	metricIDCount
)

const cacheLineSize = 64

// paddedCounter keeps hot counters on separate cache lines so concurrent
// increments of different metrics do not contend.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of atomic counters. All methods are safe for
// concurrent use; a nil or disabled Metrics is a no-op.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// NewMetrics creates a Metrics set.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments one counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Get reads one counter.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || !m.enabled || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter into a map.
func (m *Metrics) Snapshot() map[MetricID]uint64 {
	out := make(map[MetricID]uint64, metricIDCount)
	if m == nil || !m.enabled {
		return out
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		out[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return out
}

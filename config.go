package sessionguard

import (
	"errors"
	"time"
)

// Config holds all engine tuning parameters. Values are cloned on
// [Builder.WithConfig] and again on Build, so a Config can be reused and
// mutated freely by the caller afterwards.
type Config struct {
	Token       TokenConfig
	RateLimit   RateLimitConfig
	Blacklist   BlacklistConfig
	Entitlement EntitlementConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig configures both credential kinds. AccessSecret and
// RefreshSecret must differ (key separation: a leaked access secret must
// not forge refresh tokens).
type TokenConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig tunes the per-client leaky bucket. Capacity is the burst
// budget, LeakRate the tokens restored per second. Atomic routes admission
// through a server-side Lua script instead of the default
// fetch-modify-store sequence.
type RateLimitConfig struct {
	Capacity    float64
	LeakRate    float64
	RedisPrefix string
	Atomic      bool
}

/*
====================================
BLACKLIST CONFIG
====================================
*/

// BlacklistConfig names the Redis key prefix for consumed-jti markers.
type BlacklistConfig struct {
	RedisPrefix string
}

/*
====================================
ENTITLEMENT CONFIG
====================================
*/

// EntitlementConfig configures the subscription-event consumer. Brokers,
// Topic, and GroupID are used only when no bus reader is injected through
// [Builder.WithBusReader].
type EntitlementConfig struct {
	RoleName string
	Brokers  []string
	Topic    string
	GroupID  string
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking when the buffer is full.
	// Dropped counts are observable via [Engine.AuditDropped].
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 10 * 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Capacity: 10,
			LeakRate: 1,
		},
		Entitlement: EntitlementConfig{
			RoleName: "SUBSCRIBER",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the parts of Config the builder cannot delegate to
// subsystem constructors.
func (c *Config) Validate() error {
	if c.RateLimit.Capacity < 1 {
		return errors.New("rate limit capacity must be at least 1")
	}
	if c.RateLimit.LeakRate <= 0 {
		return errors.New("rate limit leak rate must be positive")
	}
	if c.Entitlement.RoleName == "" {
		return errors.New("entitlement role name required")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.AccessSecret = cloneBytes(cfg.Token.AccessSecret)
	out.Token.RefreshSecret = cloneBytes(cfg.Token.RefreshSecret)
	out.Entitlement.Brokers = append([]string(nil), cfg.Entitlement.Brokers...)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

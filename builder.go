package sessionguard

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/sessionguard/entitlement"
	"github.com/MrEthical07/sessionguard/internal/blacklist"
	"github.com/MrEthical07/sessionguard/internal/rate"
	"github.com/MrEthical07/sessionguard/internal/rotation"
	"github.com/MrEthical07/sessionguard/token"
)

// Builder assembles an [Engine]. Construction is allocation-only; no I/O
// happens until Build, and Build itself only validates and wires.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	userProvider  UserProvider
	roleDirectory RoleDirectory
	busReader     entitlement.BusReader
	auditSink     AuditSink

	built bool
}

// New creates a Builder with default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the credential-store client. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserProvider sets the external user lookup. Required.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithRoleDirectory sets the external role/assignment store consumed by
// the entitlement synchronizer.
func (b *Builder) WithRoleDirectory(dir RoleDirectory) *Builder {
	b.roleDirectory = dir
	return b
}

// WithBusReader injects an event-bus reader for the synchronizer. When
// omitted, Build constructs a Kafka reader from
// [Config.Entitlement] if brokers are configured; the engine then owns and
// closes it.
func (b *Builder) WithBusReader(reader entitlement.BusReader) *Builder {
	b.busReader = reader
	return b
}

// WithAuditSink sets the destination for audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the engine. A Builder can
// build at most once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(token.Config{
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshTTL:    cfg.Token.RefreshTTL,
		AccessSecret:  cfg.Token.AccessSecret,
		RefreshSecret: cfg.Token.RefreshSecret,
		Issuer:        cfg.Token.Issuer,
		Leeway:        cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cfg,
		tokens:       tokens,
		userProvider: b.userProvider,
	}

	blacklistStore := blacklist.New(b.redis, cfg.Blacklist.RedisPrefix)
	engine.rotator = rotation.New(tokens, blacklistStore, engine.lookupRoles)

	engine.limiter = rate.New(b.redis, rate.Config{
		Capacity: cfg.RateLimit.Capacity,
		LeakRate: cfg.RateLimit.LeakRate,
		Prefix:   cfg.RateLimit.RedisPrefix,
		Atomic:   cfg.RateLimit.Atomic,
	})

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	reader := b.busReader
	if reader == nil && len(cfg.Entitlement.Brokers) > 0 {
		kafkaReader, err := entitlement.NewReader(entitlement.BusConfig{
			Brokers: cfg.Entitlement.Brokers,
			Topic:   cfg.Entitlement.Topic,
			GroupID: cfg.Entitlement.GroupID,
		})
		if err != nil {
			return nil, err
		}
		reader = kafkaReader
		engine.ownsBusReader = true
	}

	if reader != nil {
		if b.roleDirectory == nil {
			return nil, errors.New("role directory required when a bus reader is configured")
		}
		sync, err := entitlement.NewSynchronizer(entitlement.SynchronizerConfig{
			Reader:   reader,
			Roles:    b.roleDirectory,
			RoleName: cfg.Entitlement.RoleName,
		})
		if err != nil {
			return nil, err
		}
		engine.entitlements = sync
	}

	b.built = true
	return engine, nil
}

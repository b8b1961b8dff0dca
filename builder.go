package tenantAuth

import (
	"errors"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/tenantAuth/internal/audit"
	"github.com/MrEthical07/tenantAuth/internal/rate"
	"github.com/MrEthical07/tenantAuth/password"
	"github.com/MrEthical07/tenantAuth/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. Configure it during initialization, call
// Build once, and discard it.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	sessions        SessionStore
	accounts        AccountStore
	graph           TenantGraph
	recorder        SessionRecorder
	auditSink       AuditSink
	logger          *slog.Logger
	metricsRegistry *prometheus.Registry
	now             func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the Redis client used for live sessions and the login
// throttle. It is ignored for sessions when WithSessionStore is also used.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore overrides the live session store, e.g. with
// session.NewMemoryStore for single-process deployments.
func (b *Builder) WithSessionStore(store SessionStore) *Builder {
	b.sessions = store
	return b
}

func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.accounts = store
	return b
}

func (b *Builder) WithTenantGraph(graph TenantGraph) *Builder {
	b.graph = graph
	return b
}

// WithSessionRecorder enables durable session rows.
func (b *Builder) WithSessionRecorder(recorder SessionRecorder) *Builder {
	b.recorder = recorder
	return b
}

// WithAuditSink sets the audit destination. Audit.Enabled must also be set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsRegistry registers engine collectors on reg instead of a
// private registry. Metrics.Enabled must also be set.
func (b *Builder) WithMetricsRegistry(reg *prometheus.Registry) *Builder {
	b.metricsRegistry = reg
	return b
}

// WithMetricsEnabled toggles Metrics.Enabled.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// clockSetter is implemented by session.Store and session.MemoryStore.
type clockSetter interface {
	SetClock(now func() time.Time)
}

// WithClock replaces time.Now for session issue and expiry times. Session
// stores that accept a clock are given the same one.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.accounts == nil {
		return nil, errors.New("account store required")
	}
	if b.graph == nil {
		return nil, errors.New("tenant graph required")
	}
	if b.redis == nil {
		if b.sessions == nil {
			return nil, errors.New("redis client or session store required")
		}
		if cfg.Security.EnableLoginThrottle {
			return nil, errors.New("Security EnableLoginThrottle requires redis client")
		}
	}

	// -------- SESSION STORE --------
	sessions := b.sessions
	if sessions == nil {
		sessions = session.NewStore(b.redis, cfg.Session.RedisPrefix)
	}
	if c, ok := sessions.(clockSetter); ok && b.now != nil {
		c.SetClock(b.now)
	}

	// -------- LOGIN THROTTLE --------
	var limiter *rate.Limiter
	if cfg.Security.EnableLoginThrottle {
		limiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		})
	}

	// -------- PASSWORD --------
	hasher, err := password.NewBcrypt(password.Config{Cost: cfg.Password.Cost})
	if err != nil {
		return nil, err
	}
	seed, err := password.GenerateSecurePassword()
	if err != nil {
		return nil, err
	}
	dummyHash, err := hasher.Hash(seed)
	if err != nil {
		return nil, err
	}

	// -------- METRICS --------
	var metrics *Metrics
	if cfg.Metrics.Enabled {
		metrics, err = NewMetrics(cfg.Metrics, b.metricsRegistry)
		if err != nil {
			return nil, err
		}
	}

	directory, _ := b.accounts.(AccountDirectory)

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	b.built = true

	return &Engine{
		config:    cfg,
		accounts:  b.accounts,
		directory: directory,
		graph:     b.graph,
		recorder:  b.recorder,
		sessions:  sessions,
		limiter:   limiter,
		hasher:    hasher,
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
			Now:        now,
			OnDrop: func(internalaudit.Event) {
				metrics.Inc(MetricAuditDropped)
			},
			OnSinkPanic: func(event internalaudit.Event, recovered any) {
				logger.Error("tenantAuth: audit sink panicked", "event", event.EventType, "panic", recovered)
			},
		}, b.auditSink),
		metrics:   metrics,
		logger:    logger,
		now:       now,
		dummyHash: dummyHash,
	}, nil
}

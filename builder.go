package authguard

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ethanvx/authguard/internal/clock"
	"github.com/ethanvx/authguard/internal/events"
	"github.com/ethanvx/authguard/internal/ratelimit"
	"github.com/ethanvx/authguard/internal/refresh"
)

// LimitStore persists limiter entries. The in-memory default is built
// automatically; WithRedis swaps in the Redis-backed implementation, and
// WithLimitStore accepts any conforming external store.
type LimitStore = ratelimit.Store

// Builder assembles a [Guard]. Configure it with the With methods, then call
// Build exactly once.
type Builder struct {
	config    Config
	redis     *redis.Client
	store     LimitStore
	provider  RefreshProvider
	auditSink AuditSink
	logger    *zap.Logger
	clock     clock.Clock

	built bool
}

// New creates a Builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs the rate limiter with Redis instead of process memory, so
// limiter state survives restarts within the non-goals of this package.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithLimitStore supplies a custom entry store. Takes precedence over
// WithRedis.
func (b *Builder) WithLimitStore(store LimitStore) *Builder {
	b.store = store
	return b
}

// WithProvider supplies the identity-provider refresh operation. Required
// for Refresh and ScheduleRefresh; limiter-only guards may omit it.
func (b *Builder) WithProvider(p RefreshProvider) *Builder {
	b.provider = p
	return b
}

// WithAuditSink supplies the destination for audit events. Ignored unless
// Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger supplies the diagnostics logger used for listener panics,
// sweeper activity, and scheduling decisions. Defaults to a nop logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source. Intended for tests.
func (b *Builder) WithClock(clk clock.Clock) *Builder {
	b.clock = clk
	return b
}

// Build validates the configuration and wires the Guard. The sweeper starts
// immediately when enabled.
func (b *Builder) Build() (*Guard, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	clk := b.clock
	if clk == nil {
		clk = clock.System()
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store := b.store
	if store == nil {
		if b.redis != nil {
			store = ratelimit.NewRedisStore(b.redis, b.config.RateLimit.RedisPrefix)
		} else {
			store = ratelimit.NewMemoryStore()
		}
	}

	limiter := ratelimit.New(store, clk, ratelimit.Config{
		MaxAttempts:        b.config.RateLimit.MaxAttempts,
		Window:             b.config.RateLimit.Window,
		ProgressiveDelays:  b.config.RateLimit.ProgressiveDelays,
		BypassRequestTypes: b.config.RateLimit.BypassRequestTypes,
	})

	bus := events.NewBus(clk, logger)

	var coordinator *refresh.Coordinator
	if b.provider != nil {
		coordinator = refresh.NewCoordinator(refresh.Config{
			Threshold:        b.config.Refresh.Threshold,
			SafetyBuffer:     b.config.Refresh.SafetyBuffer,
			MaxRetryAttempts: b.config.Refresh.MaxRetryAttempts,
			BaseDelay:        b.config.Refresh.BaseDelay,
			MaxDelay:         b.config.Refresh.MaxDelay,
			BackoffFactor:    b.config.Refresh.BackoffFactor,
		}, b.provider, clk, bus, logger)
	}

	g := &Guard{
		config:      b.config,
		limiter:     limiter,
		coordinator: coordinator,
		bus:         bus,
		metrics:     NewMetrics(b.config.Metrics),
		audit:       newAuditDispatcher(b.config.Audit, b.auditSink),
		logger:      logger,
		clock:       clk,
	}
	g.observeRefreshEvents()

	if b.config.Sweeper.Enabled {
		g.sweeper = ratelimit.NewSweeper(limiter, clk, b.config.Sweeper.Interval, logger)
		g.sweeper.Start()
	}

	b.built = true
	return g, nil
}

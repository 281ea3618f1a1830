package authguard

import (
	"errors"
	"time"
)

// Config defines the tuning surface for a [Guard]. Instances are configured
// during initialization and treated as immutable after [Builder.Build].
type Config struct {
	RateLimit RateLimitConfig
	Sweeper   SweeperConfig
	Refresh   RefreshConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig tunes the adaptive login throttle.
type RateLimitConfig struct {
	// MaxAttempts is the failed-attempt budget per identifier and window.
	MaxAttempts int
	// Window is the rolling duration during which failures accumulate
	// before an idle identifier auto-resets.
	Window time.Duration
	// ProgressiveDelays is the ordered list of escalating block durations
	// applied on repeated violations, saturating at the last element.
	ProgressiveDelays []time.Duration
	// BypassRequestTypes lists request categories exempt from throttling
	// by policy, e.g. credential-reset requests.
	BypassRequestTypes []string
	// RedisPrefix namespaces limiter keys when a Redis store is used.
	RedisPrefix string
}

/*
====================================
SWEEPER CONFIG
====================================
*/

// SweeperConfig tunes the background eviction of expired limiter entries.
type SweeperConfig struct {
	Enabled  bool
	Interval time.Duration
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig tunes the token-refresh coordinator.
type RefreshConfig struct {
	// Threshold is how far ahead of expiry a proactive refresh is aimed.
	Threshold time.Duration
	// SafetyBuffer widens the proactive window to absorb clock slop.
	SafetyBuffer time.Duration
	// MaxRetryAttempts bounds provider calls inside one refresh sequence.
	MaxRetryAttempts int
	// BaseDelay is the first inter-attempt backoff delay.
	BaseDelay time.Duration
	// MaxDelay caps the grown backoff delay.
	MaxDelay time.Duration
	// BackoffFactor is the exponential growth factor between attempts.
	BackoffFactor float64
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit event pipeline.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process metrics registry.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		RateLimit: RateLimitConfig{
			MaxAttempts: 5,
			Window:      15 * time.Minute,
			ProgressiveDelays: []time.Duration{
				60 * time.Second,
				300 * time.Second,
				900 * time.Second,
				1800 * time.Second,
				3600 * time.Second,
			},
			BypassRequestTypes: []string{"password_reset"},
			RedisPrefix:        "agl",
		},
		Sweeper: SweeperConfig{
			Enabled:  true,
			Interval: 5 * time.Minute,
		},
		Refresh: RefreshConfig{
			Threshold:        5 * time.Minute,
			SafetyBuffer:     30 * time.Second,
			MaxRetryAttempts: 3,
			BaseDelay:        time.Second,
			MaxDelay:         30 * time.Second,
			BackoffFactor:    2.0,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.RateLimit.ProgressiveDelays = cloneDurations(cfg.RateLimit.ProgressiveDelays)
	out.RateLimit.BypassRequestTypes = cloneStrings(cfg.RateLimit.BypassRequestTypes)
	return out
}

func cloneDurations(in []time.Duration) []time.Duration {
	if len(in) == 0 {
		return nil
	}
	out := make([]time.Duration, len(in))
	copy(out, in)
	return out
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks internal consistency of the configuration.
func (c *Config) Validate() error {
	// Rate limit
	if c.RateLimit.MaxAttempts <= 0 {
		return errors.New("RateLimit MaxAttempts must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("RateLimit Window must be > 0")
	}
	if len(c.RateLimit.ProgressiveDelays) == 0 {
		return errors.New("RateLimit ProgressiveDelays must not be empty")
	}
	for i, d := range c.RateLimit.ProgressiveDelays {
		if d <= 0 {
			return errors.New("RateLimit ProgressiveDelays entries must be > 0")
		}
		if i > 0 && d < c.RateLimit.ProgressiveDelays[i-1] {
			return errors.New("RateLimit ProgressiveDelays must be non-decreasing")
		}
	}

	// Sweeper
	if c.Sweeper.Enabled && c.Sweeper.Interval <= 0 {
		return errors.New("Sweeper Interval must be > 0 when Sweeper is enabled")
	}

	// Refresh
	if c.Refresh.Threshold < 0 {
		return errors.New("Refresh Threshold must be >= 0")
	}
	if c.Refresh.SafetyBuffer < 0 {
		return errors.New("Refresh SafetyBuffer must be >= 0")
	}
	if c.Refresh.MaxRetryAttempts <= 0 {
		return errors.New("Refresh MaxRetryAttempts must be > 0")
	}
	if c.Refresh.BaseDelay <= 0 {
		return errors.New("Refresh BaseDelay must be > 0")
	}
	if c.Refresh.MaxDelay < c.Refresh.BaseDelay {
		return errors.New("Refresh MaxDelay must be >= BaseDelay")
	}
	if c.Refresh.BackoffFactor < 1 {
		return errors.New("Refresh BackoffFactor must be >= 1")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	return nil
}

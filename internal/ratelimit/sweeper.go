package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ethanvx/authguard/internal/clock"
)

// Sweeper periodically evicts expired limiter entries to bound memory. It
// re-arms a single-shot clock timer after each pass, so stopping it never
// leaks a timer handle, and it tolerates Stop/Start cycles.
type Sweeper struct {
	limiter  *Limiter
	clock    clock.Clock
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	timer   clock.Timer
	running bool
}

// NewSweeper creates a stopped sweeper. Call Start to begin sweeping.
func NewSweeper(limiter *Limiter, clk clock.Clock, interval time.Duration, logger *zap.Logger) *Sweeper {
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		limiter:  limiter,
		clock:    clk,
		interval: interval,
		logger:   logger,
	}
}

// Start arms the sweep timer. Calling Start on a running sweeper is a no-op.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.timer = s.clock.AfterFunc(s.interval, s.sweep)
}

// Stop cancels the pending sweep. The sweeper can be started again later.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Sweeper) sweep() {
	evicted, err := s.limiter.Cleanup(context.Background())
	if err != nil {
		s.logger.Warn("rate limit sweep failed", zap.Error(err))
	} else if evicted > 0 {
		s.logger.Debug("rate limit sweep evicted entries", zap.Int("evicted", evicted))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.timer = s.clock.AfterFunc(s.interval, s.sweep)
}

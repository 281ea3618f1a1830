package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ethanvx/authguard/internal/clock"
)

func TestSweeperEvictsExpiredEntries(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	l := New(NewMemoryStore(), clk, testConfig())
	s := NewSweeper(l, clk, time.Minute, nil)

	recordFailures(t, l, "stale@example.com", 1)

	s.Start()
	defer s.Stop()

	// Window is 15m; after 16m of sweeps the entry must be gone.
	clk.Advance(16 * time.Minute)

	stats, err := l.Statistics(context.Background())
	require.NoError(t, err)
	require.Zero(t, stats.Tracked)
}

func TestSweeperKeepsUnexpiredEntries(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	l := New(NewMemoryStore(), clk, testConfig())
	s := NewSweeper(l, clk, time.Minute, nil)

	recordFailures(t, l, "fresh@example.com", 2)

	s.Start()
	defer s.Stop()

	clk.Advance(5 * time.Minute)

	stats, err := l.Statistics(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Tracked)
	require.Equal(t, 2, stats.TotalAttempts)
}

func TestSweeperStopStartCycle(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	l := New(NewMemoryStore(), clk, testConfig())
	s := NewSweeper(l, clk, time.Minute, nil)

	s.Start()
	s.Start() // no-op
	s.Stop()
	s.Stop() // no-op

	recordFailures(t, l, "stale@example.com", 1)
	clk.Advance(20 * time.Minute) // stopped: nothing fires

	stats, err := l.Statistics(context.Background())
	require.NoError(t, err)
	require.Zero(t, stats.Tracked) // logically expired even though stored

	entries, err := l.store.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1) // not yet evicted

	s.Start()
	clk.Advance(time.Minute)

	entries, err = l.store.Entries(context.Background())
	require.NoError(t, err)
	require.Empty(t, entries)
}

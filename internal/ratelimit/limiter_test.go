package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ethanvx/authguard/internal/clock"
)

func testConfig() Config {
	return Config{
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
	}
}

func newTestLimiter(t *testing.T) (*Limiter, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return New(NewMemoryStore(), clk, testConfig()), clk
}

func recordFailures(t *testing.T, l *Limiter, identifier string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := l.RecordAttempt(context.Background(), identifier, false)
		require.NoError(t, err)
	}
}

func TestCheckUnknownIdentifierAllowed(t *testing.T) {
	l, _ := newTestLimiter(t)

	d, err := l.Check(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 5, d.Remaining)
	require.Zero(t, d.RetryAfter)
}

func TestRemainingDecreasesPerFailure(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		_, err := l.RecordAttempt(ctx, "alice@example.com", false)
		require.NoError(t, err)

		d, err := l.Check(ctx, "alice@example.com")
		require.NoError(t, err)
		require.True(t, d.Allowed)
		require.Equal(t, 5-i, d.Remaining)
	}
}

func TestBlockAfterMaxAttempts(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	recordFailures(t, l, "alice@example.com", 5)

	d, err := l.Check(ctx, "alice@example.com")
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, 60*time.Second, d.RetryAfter)
}

func TestProgressiveEscalationLadder(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	// 5 failures => D[0], each further failure climbs the ladder and the
	// 9th and beyond saturate at D[4].
	expected := []time.Duration{
		60 * time.Second,
		300 * time.Second,
		900 * time.Second,
		1800 * time.Second,
		3600 * time.Second,
		3600 * time.Second,
	}

	recordFailures(t, l, "bob@example.com", 5)
	for i, want := range expected {
		d, err := l.Check(ctx, "bob@example.com")
		require.NoError(t, err)
		require.False(t, d.Allowed)
		require.Equal(t, want, d.RetryAfter, "violation %d", i)

		recordFailures(t, l, "bob@example.com", 1)
	}
}

func TestPenaltyNeverRegresses(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	recordFailures(t, l, "carol@example.com", 12)

	d, err := l.Check(ctx, "carol@example.com")
	require.NoError(t, err)
	require.Equal(t, 3600*time.Second, d.RetryAfter)

	recordFailures(t, l, "carol@example.com", 1)
	d, err = l.Check(ctx, "carol@example.com")
	require.NoError(t, err)
	require.Equal(t, 3600*time.Second, d.RetryAfter)
}

func TestSuccessClearsAllState(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	recordFailures(t, l, "alice@example.com", 7)

	_, err := l.RecordAttempt(ctx, "alice@example.com", true)
	require.NoError(t, err)

	// No residual penalty memory: the identifier looks brand new.
	d, err := l.Check(ctx, "alice@example.com")
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 5, d.Remaining)
}

func TestWindowElapseResetsIdentifier(t *testing.T) {
	l, clk := newTestLimiter(t)
	ctx := context.Background()

	recordFailures(t, l, "alice@example.com", 3)

	clk.Advance(15*time.Minute + time.Second)

	d, err := l.Check(ctx, "alice@example.com")
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 5, d.Remaining)
}

func TestBlockExpiresAfterPenaltyWindow(t *testing.T) {
	l, clk := newTestLimiter(t)
	ctx := context.Background()

	recordFailures(t, l, "alice@example.com", 5)

	d, err := l.Check(ctx, "alice@example.com")
	require.NoError(t, err)
	require.False(t, d.Allowed)

	clk.Advance(61 * time.Second)

	d, err = l.Check(ctx, "alice@example.com")
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 5, d.Remaining)
}

func TestIdentifiersAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	recordFailures(t, l, "alice@example.com", 5)

	d, err := l.Check(ctx, "bob@example.com")
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 5, d.Remaining)
}

func TestStatusMatchesCheck(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	recordFailures(t, l, "alice@example.com", 2)

	got, err := l.Status(ctx, "alice@example.com")
	require.NoError(t, err)
	want, err := l.Check(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestCleanupRemovesOnlyExpired(t *testing.T) {
	l, clk := newTestLimiter(t)
	ctx := context.Background()

	recordFailures(t, l, "stale@example.com", 2)
	clk.Advance(14 * time.Minute)
	recordFailures(t, l, "fresh@example.com", 3)
	clk.Advance(90 * time.Second) // stale's window has now elapsed

	evicted, err := l.Cleanup(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, evicted)

	// Unexpired entry's attempts untouched.
	d, err := l.Check(ctx, "fresh@example.com")
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 2, d.Remaining)
}

func TestRecordAttemptReportsNewBlockOnce(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		blocked, err := l.RecordAttempt(ctx, "alice@example.com", false)
		require.NoError(t, err)
		require.False(t, blocked)
	}

	blocked, err := l.RecordAttempt(ctx, "alice@example.com", false)
	require.NoError(t, err)
	require.True(t, blocked)

	blocked, err = l.RecordAttempt(ctx, "alice@example.com", false)
	require.NoError(t, err)
	require.False(t, blocked)
}

func TestAdministrativeBlock(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	require.NoError(t, l.Block(ctx, "198.51.100.4", 10*time.Minute))

	d, err := l.Check(ctx, "198.51.100.4")
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, 600*time.Second, d.RetryAfter)

	stats, err := l.Statistics(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Blocked)
	// Blocked implies attempts at or past the budget.
	require.GreaterOrEqual(t, stats.TotalAttempts, 5)
}

func TestResetIsNoOpWhenAbsent(t *testing.T) {
	l, _ := newTestLimiter(t)
	require.NoError(t, l.Reset(context.Background(), "ghost@example.com"))
}

func TestShouldBypass(t *testing.T) {
	l, _ := newTestLimiter(t)

	require.True(t, l.ShouldBypass("alice@example.com", "password_reset"))
	require.False(t, l.ShouldBypass("alice@example.com", "login"))
	require.False(t, l.ShouldBypass("alice@example.com", ""))
}

func TestStatistics(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	stats, err := l.Statistics(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.Tracked)
	require.Zero(t, stats.MeanAttempts)

	recordFailures(t, l, "a@example.com", 2)
	recordFailures(t, l, "b@example.com", 6)

	stats, err = l.Statistics(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Tracked)
	require.Equal(t, 1, stats.Blocked)
	require.InDelta(t, 4.0, stats.MeanAttempts, 0.001)
}

func TestConcurrentCheckAndRecord(t *testing.T) {
	l := New(NewMemoryStore(), clock.System(), testConfig())
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_, _ = l.RecordAttempt(ctx, "hot@example.com", false)
			_, _ = l.Cleanup(ctx)
		}
	}()
	for i := 0; i < 200; i++ {
		_, err := l.Check(ctx, "hot@example.com")
		require.NoError(t, err)
	}
	<-done
}

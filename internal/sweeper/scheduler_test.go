package sweeper

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartupSchedule(t *testing.T) {
	t.Parallel()

	s := &startupSchedule{delay: 10 * time.Second, interval: time.Minute}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	first := s.Next(start)
	assert.Equal(t, start.Add(10*time.Second), first)

	second := s.Next(first)
	assert.Equal(t, first.Add(time.Minute), second)
	assert.Equal(t, second.Add(time.Minute), s.Next(second))
}

func TestScheduler_SweepsAfterDelayAndStops(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.grant(t, 100, 1, time.Hour)
	f.clock.Set(t0.Add(2 * time.Hour))

	scheduler := NewScheduler(f.sweeper, 10*time.Millisecond, 20*time.Millisecond, slog.New(slog.DiscardHandler))
	scheduler.Start(context.Background())

	require.Eventually(t, func() bool {
		return !f.has(100, 1)
	}, 5*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, scheduler.Stop(stopCtx))

	// nothing runs after Stop returns
	f.grant(t, 100, 2, time.Hour)
	f.clock.Set(t0.Add(5 * time.Hour))
	calls := len(f.gateway.Revokes())
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, f.gateway.Revokes(), calls)
	assert.True(t, f.has(100, 2))
}

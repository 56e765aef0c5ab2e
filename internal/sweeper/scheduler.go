package sweeper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// startupSchedule fires once after delay and then every interval after the
// previous run. cron calls Next from a single goroutine.
type startupSchedule struct {
	delay    time.Duration
	interval time.Duration
	armed    bool
}

func (s *startupSchedule) Next(t time.Time) time.Time {
	if !s.armed {
		s.armed = true
		return t.Add(s.delay)
	}
	return t.Add(s.interval)
}

// cronLogger adapts slog to cron's logger interface
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

// Scheduler runs sweeps periodically on a cron runner
type Scheduler struct {
	cron    *cron.Cron
	sweeper *Sweeper
	logger  *slog.Logger

	delay    time.Duration
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler that first sweeps after delay and then
// every interval
func NewScheduler(sweeper *Sweeper, delay, interval time.Duration, logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		sweeper:  sweeper,
		logger:   logger,
		delay:    delay,
		interval: interval,
	}
}

// Start schedules the sweep and starts the cron runner. Sweeps run with a
// context derived from ctx that Stop cancels.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.cron.Schedule(&startupSchedule{delay: s.delay, interval: s.interval}, cron.FuncJob(func() {
		if runCtx.Err() != nil {
			return
		}
		s.sweeper.Sweep(runCtx)
	}))
	s.cron.Start()
	s.logger.Info("sweep scheduler started", "delay", s.delay, "interval", s.interval)
}

// Stop prevents new sweeps and waits for a running one to finish its
// current entitlement, or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("sweep scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("sweep scheduler stop timed out", "error", ctx.Err())
		return ctx.Err()
	}
}

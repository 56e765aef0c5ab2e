package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// broadcastLimit bounds concurrent notification calls
const broadcastLimit = 8

// Broadcast sends text to every recipient, each call bounded by timeout.
// A failure for one recipient is logged and does not stop the others.
// It returns the failures keyed by recipient.
func Broadcast(ctx context.Context, notifier Notifier, recipients []int64, text string, timeout time.Duration, logger *slog.Logger) map[int64]error {
	var (
		mu       sync.Mutex
		failures = make(map[int64]error)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(broadcastLimit)

	for _, recipient := range recipients {
		g.Go(func() error {
			callCtx := gctx
			if timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(gctx, timeout)
				defer cancel()
			}
			if err := notifier.Notify(callCtx, recipient, text); err != nil {
				logger.WarnContext(ctx, "notification failed", "recipient", recipient, "kind", KindOf(err).String(), "error", err)
				mu.Lock()
				failures[recipient] = err
				mu.Unlock()
			}
			return nil // one failed recipient must not cancel the rest
		})
	}
	_ = g.Wait()

	return failures
}

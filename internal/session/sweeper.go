package session

import (
	"context"
	"log/slog"
	"time"
)

// StartSweeper runs a background goroutine that periodically purges expired
// sessions. Lookups still expire sessions lazily, so the sweeper only bounds
// memory held by abandoned sessions. A non-positive interval disables it.
func StartSweeper(ctx context.Context, store *Store, interval time.Duration) {
	if interval <= 0 {
		slog.Info("Session sweeper disabled")
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", interval, "timeout", store.timeout)

		for {
			select {
			case <-ticker.C:
				if removed := store.Sweep(); removed > 0 {
					slog.Info("Session sweeper removed expired sessions", "count", removed, "remaining", store.Len())
				}
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

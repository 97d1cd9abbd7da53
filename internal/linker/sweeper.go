package linker

import (
	"context"
	"log/slog"
	"time"

	"github.com/chatgrove/chatgrove/internal/store"
)

const sweepInterval = 1 * time.Minute

// StartSweeper runs a background goroutine that periodically deletes
// pending links whose tab never reported a conversation. A tab closed
// without ever conversing leaves its intent behind until this sweep
// catches it.
func StartSweeper(ctx context.Context, repo store.Repository, ttl time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Pending-link sweeper started", "interval", sweepInterval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				sweepExpired(ctx, repo, ttl)
			case <-ctx.Done():
				slog.Info("Pending-link sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepExpired(ctx context.Context, repo store.Repository, ttl time.Duration) {
	deleted, err := repo.DeleteExpiredPendingLinks(ctx, ttl)
	if err != nil {
		slog.Error("Sweeper failed to delete expired pending links", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Sweeper removed expired pending links", "count", deleted)
	}
}

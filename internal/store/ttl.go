package store

import (
	"context"
	"log/slog"
	"time"
)

// CleanupCallback is called when a session is removed by the TTL worker.
type CleanupCallback func(threadID string)

// StartTTLWorker runs a background goroutine that periodically sweeps for
// idle sessions and deletes them. It returns immediately.
func StartTTLWorker(ctx context.Context, repo Repository, ttl, interval time.Duration, onCleanup CleanupCallback) {
	if ttl <= 0 || interval <= 0 {
		slog.Info("TTL worker disabled", "ttl", ttl, "interval", interval)
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("TTL worker started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				CleanupExpiredSessions(ctx, repo, ttl, onCleanup)
			case <-ctx.Done():
				slog.Info("TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// CleanupExpiredSessions deletes sessions idle longer than ttl and returns
// how many were removed.
func CleanupExpiredSessions(ctx context.Context, repo Repository, ttl time.Duration, onCleanup CleanupCallback) int {
	expired, err := repo.GetExpiredSessions(ctx, ttl)
	if err != nil {
		slog.Error("TTL worker failed to get expired sessions", "error", err)
		return 0
	}
	if len(expired) == 0 {
		return 0
	}

	slog.Info("TTL worker found expired sessions", "count", len(expired))

	cleaned := 0
	for _, threadID := range expired {
		// Repository writes retry lock conflicts themselves.
		if err := repo.DeleteSession(ctx, threadID); err != nil {
			if ctx.Err() != nil {
				slog.Debug("TTL worker: context canceled, cleanup may be incomplete", "thread_id", threadID)
				return cleaned
			}
			slog.Warn("TTL worker failed to delete session", "error", err, "thread_id", threadID)
			continue
		}
		cleaned++
		if onCleanup != nil {
			onCleanup(threadID)
		}
	}

	slog.Info("TTL worker cleanup completed", "cleaned", cleaned)
	return cleaned
}

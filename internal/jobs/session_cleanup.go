package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"reflectify/server/internal/config"
)

type SessionStore interface {
	DeleteStaleRefreshSessions(ctx context.Context, before time.Time) (int64, error)
}

// StartSessionCleanupJob periodically deletes expired and revoked refresh
// sessions. The job stops when ctx is cancelled.
func StartSessionCleanupJob(ctx context.Context, cfg config.Config, store SessionStore, logger *zap.Logger) {
	if !cfg.SessionCleanupEnabled {
		return
	}
	interval := cfg.SessionCleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
				deleted, err := store.DeleteStaleRefreshSessions(tickCtx, time.Now().UTC())
				cancel()
				if err != nil {
					logger.Warn("session cleanup failed", zap.Error(err))
					continue
				}
				if deleted > 0 {
					logger.Info("session cleanup removed stale sessions", zap.Int64("deleted", deleted))
				}
			}
		}
	}()
}

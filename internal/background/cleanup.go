package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ExpiredSessionPurger deletes sessions that expired before now
type ExpiredSessionPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionCleaner periodically removes expired sessions. Lookups already
// delete expired rows they touch; this catches sessions nobody presents again.
type SessionCleaner struct {
	sessions ExpiredSessionPurger
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewSessionCleaner(sessions ExpiredSessionPurger, logger *slog.Logger, interval time.Duration) *SessionCleaner {
	return &SessionCleaner{
		sessions: sessions,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the purge immediately and then every interval until Stop or ctx is done
func (sc *SessionCleaner) Start(ctx context.Context) {
	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()

	sc.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			sc.runCleanup(ctx)
		case <-sc.stopCh:
			sc.logger.Info("session cleaner stopped")
			return
		case <-ctx.Done():
			sc.logger.Info("session cleaner context cancelled")
			return
		}
	}
}

func (sc *SessionCleaner) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	deleted, err := sc.sessions.DeleteExpired(cleanupCtx, sc.now().UTC())
	if err != nil {
		sc.logger.Error("failed to purge expired sessions", slog.Any("error", err))
		return
	}

	if deleted > 0 {
		sc.logger.Info("expired sessions purged", slog.Int64("rows_deleted", deleted))
	}
}

// Stop signals the cleaner to exit; safe to call more than once
func (sc *SessionCleaner) Stop() {
	sc.stopOnce.Do(func() { close(sc.stopCh) })
}

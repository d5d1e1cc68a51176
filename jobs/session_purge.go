package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// ExpiredSessionDeleter removes sessions that expired at or before now
type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionPurgeJob deletes expired login sessions
type SessionPurgeJob struct {
	sessions ExpiredSessionDeleter
	now      func() time.Time
}

// NewSessionPurgeJob creates a new session purge job
func NewSessionPurgeJob(sessions ExpiredSessionDeleter) *SessionPurgeJob {
	return &SessionPurgeJob{
		sessions: sessions,
		now:      time.Now,
	}
}

// Run purges expired sessions once and returns how many were removed
func (j *SessionPurgeJob) Run(ctx context.Context) (int64, error) {
	n, err := j.sessions.DeleteExpired(ctx, j.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	if n > 0 {
		log.Info("Purged expired sessions", "count", n)
	}
	return n, nil
}

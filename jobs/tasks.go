package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionsPurge is the task type for purging expired session rows.
	TaskSessionsPurge = "sessions:purge"
	// SessionsPurgeCron runs the purge at the top of every hour.
	SessionsPurgeCron = "0 * * * *"
)

// SessionPurger deletes expired session audit rows.
type SessionPurger interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// NewSessionsPurgeTask constructs the purge task for scheduling.
func NewSessionsPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskSessionsPurge, nil)
}

// NewSessionsPurgeHandler returns the handler processing TaskSessionsPurge.
func NewSessionsPurgeHandler(sessions SessionPurger, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		deleted, err := sessions.DeleteExpiredSessions(ctx)
		if err != nil {
			if logger != nil {
				logger.Error("session purge failed", slog.Any("error", err))
			}
			return err
		}
		if logger != nil {
			logger.Info("session purge executed", slog.Int64("deleted", deleted))
		}
		return nil
	}
}

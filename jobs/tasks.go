// Package jobs runs the background side of session expiry. The in-process
// timer dies with the process; the sweep task walks the postgres registry so
// credentials lapsed during a restart still get cleared and notified.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/courierdash/courierdash/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeCredentialSweep purges lapsed sessions from the registry and
	// clears their credential slots.
	TaskTypeCredentialSweep = "session:sweep"
)

// NewCredentialSweepTask constructs the sweep task. It carries no payload;
// the registry itself is the work list.
func NewCredentialSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeCredentialSweep, nil)
}

// SessionPurger removes lapsed registry rows and reports their session IDs.
type SessionPurger interface {
	PurgeLapsed(ctx context.Context, now time.Time) ([]string, error)
}

// CredentialClearer empties a session's credential slot.
type CredentialClearer interface {
	Clear(ctx context.Context, sessionID string) error
}

// FlashQueuer appends a notification to a session out of band.
type FlashQueuer interface {
	QueueFlash(ctx context.Context, sessionID string, msg shared.FlashMessage) error
}

// SweepMetrics records sweep outcomes. May be nil.
type SweepMetrics interface {
	IncAutoLogout()
	AddSessionsSwept(n int)
}

// NewCredentialSweepHandler builds the asynq handler for the sweep task.
// Each lapsed session gets the same treatment the in-process timer applies:
// slot cleared, auto-logout notification queued.
func NewCredentialSweepHandler(logger *slog.Logger, purger SessionPurger, store CredentialClearer, flashes FlashQueuer, metrics SweepMetrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		ids, err := purger.PurgeLapsed(ctx, time.Now())
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := store.Clear(ctx, id); err != nil {
				logger.Error("sweep clear credential", slog.String("session_id", id), slog.Any("error", err))
				continue
			}
			if err := flashes.QueueFlash(ctx, id, shared.FlashMessage{Kind: "error", Message: shared.MsgAutoLoggedOut}); err != nil {
				logger.Error("sweep queue flash", slog.String("session_id", id), slog.Any("error", err))
			}
			if metrics != nil {
				metrics.IncAutoLogout()
			}
		}
		if metrics != nil {
			metrics.AddSessionsSwept(len(ids))
		}
		if len(ids) > 0 {
			logger.Info("swept lapsed sessions", slog.Int("count", len(ids)))
		}
		return nil
	}
}

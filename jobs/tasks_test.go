package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/courierdash/courierdash/internal/shared"
)

type stubPurger struct {
	ids []string
	err error
}

func (s *stubPurger) PurgeLapsed(ctx context.Context, now time.Time) ([]string, error) {
	return s.ids, s.err
}

type recordingStore struct {
	cleared []string
	failOn  string
}

func (r *recordingStore) Clear(ctx context.Context, sessionID string) error {
	if sessionID == r.failOn {
		return errors.New("redis down")
	}
	r.cleared = append(r.cleared, sessionID)
	return nil
}

type recordingFlashes struct {
	queued map[string]shared.FlashMessage
}

func (r *recordingFlashes) QueueFlash(ctx context.Context, sessionID string, msg shared.FlashMessage) error {
	if r.queued == nil {
		r.queued = make(map[string]shared.FlashMessage)
	}
	r.queued[sessionID] = msg
	return nil
}

type recordingMetrics struct {
	autoLogouts int
	swept       int
}

func (r *recordingMetrics) IncAutoLogout() { r.autoLogouts++ }

func (r *recordingMetrics) AddSessionsSwept(n int) { r.swept += n }

func TestSweepClearsAndNotifiesLapsedSessions(t *testing.T) {
	purger := &stubPurger{ids: []string{"sess-1", "sess-2"}}
	store := &recordingStore{}
	flashes := &recordingFlashes{}
	handler := NewCredentialSweepHandler(slog.New(slog.DiscardHandler), purger, store, flashes, nil)

	if err := handler(context.Background(), NewCredentialSweepTask()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if len(store.cleared) != 2 {
		t.Fatalf("expected 2 cleared slots, got %v", store.cleared)
	}
	for _, id := range purger.ids {
		msg, ok := flashes.queued[id]
		if !ok {
			t.Fatalf("expected flash for %s", id)
		}
		if msg.Message != shared.MsgAutoLoggedOut {
			t.Fatalf("expected auto-logout message, got %q", msg.Message)
		}
	}
}

func TestSweepSkipsNotificationWhenClearFails(t *testing.T) {
	purger := &stubPurger{ids: []string{"sess-1", "sess-2"}}
	store := &recordingStore{failOn: "sess-1"}
	flashes := &recordingFlashes{}
	handler := NewCredentialSweepHandler(slog.New(slog.DiscardHandler), purger, store, flashes, nil)

	if err := handler(context.Background(), NewCredentialSweepTask()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if _, ok := flashes.queued["sess-1"]; ok {
		t.Fatal("must not notify a session whose slot is still set")
	}
	if _, ok := flashes.queued["sess-2"]; !ok {
		t.Fatal("other sessions still get notified")
	}
}

func TestSweepRecordsMetrics(t *testing.T) {
	purger := &stubPurger{ids: []string{"sess-1", "sess-2", "sess-3"}}
	store := &recordingStore{failOn: "sess-3"}
	metrics := &recordingMetrics{}
	handler := NewCredentialSweepHandler(slog.New(slog.DiscardHandler), purger, store, &recordingFlashes{}, metrics)

	if err := handler(context.Background(), NewCredentialSweepTask()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if metrics.autoLogouts != 2 {
		t.Fatalf("expected 2 auto-logouts counted, got %d", metrics.autoLogouts)
	}
	if metrics.swept != 3 {
		t.Fatalf("expected 3 swept rows counted, got %d", metrics.swept)
	}
}

func TestSweepPropagatesRegistryFailure(t *testing.T) {
	purger := &stubPurger{err: errors.New("pg down")}
	handler := NewCredentialSweepHandler(slog.New(slog.DiscardHandler), purger, &recordingStore{}, &recordingFlashes{}, nil)

	if err := handler(context.Background(), NewCredentialSweepTask()); err == nil {
		t.Fatal("expected error so asynq retries the sweep")
	}
}

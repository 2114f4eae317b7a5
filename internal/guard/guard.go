// Package guard gates protected routes on the state of the session
// credential. It is the only place that decides between allowing a render,
// redirecting to login, and triggering the logout side effects; every other
// entry point (logout button, rejected upstream calls, the auto-logout
// timer) delegates here instead of re-implementing the checks.
package guard

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/courierdash/courierdash/internal/session"
	"github.com/courierdash/courierdash/internal/shared"
)

// LoginPath is where denied requests are sent.
const LoginPath = "/login"

// Metrics counts logout events for the observability layer. nil disables
// counting.
type Metrics interface {
	IncAutoLogout()
}

// Guard wires the session evaluator, the credential store and the
// auto-logout scheduler into chi middleware.
type Guard struct {
	logger    *slog.Logger
	store     session.CredentialStore
	scheduler *session.Scheduler
	sessions  *shared.SessionManager
	metrics   Metrics
	now       func() time.Time
}

// New constructs a Guard. metrics may be nil. now may be nil, in which case
// time.Now is used; tests inject a fixed clock.
func New(logger *slog.Logger, store session.CredentialStore, scheduler *session.Scheduler, sessions *shared.SessionManager, metrics Metrics, now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{logger: logger, store: store, scheduler: scheduler, sessions: sessions, metrics: metrics, now: now}
}

// Protect resolves the session state before any protected content renders.
// Absent sessions are redirected silently; expired ones get the expiry
// notification first. Valid sessions re-arm the auto-logout timer and expose
// the role to downstream handlers via the request context.
func (g *Guard) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess := shared.SessionFromContext(ctx)
		if sess == nil {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}

		credential, err := g.store.Get(ctx, sess.ID)
		if err != nil {
			// Storage failure degrades to an absent session rather than
			// surfacing an error page with no way out.
			g.logger.Error("read credential slot", slog.Any("error", err))
			credential = ""
		}

		switch state := session.Evaluate(credential, g.now()); state.Status {
		case session.StatusAbsent:
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)

		case session.StatusExpired:
			g.Expire(w, r, sess)

		case session.StatusValid:
			if _, err := g.scheduler.Arm(sess.ID, state.ExpiresAt, g.onExpire(sess.ID)); err != nil {
				// The credential lapsed between Evaluate and Arm.
				g.Expire(w, r, sess)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithRole(ctx, state.Role)))
		}
	})
}

// Refresh arms the session's auto-logout timer for a newly stored
// credential. Any handle armed for the previous credential is replaced, so
// its stale closure can never fire against the fresh token.
func (g *Guard) Refresh(sessionID string, expiresAt time.Time) error {
	_, err := g.scheduler.Arm(sessionID, expiresAt, g.onExpire(sessionID))
	return err
}

// Expire performs the full request-time logout: notification, credential
// teardown, timer cancellation, redirect. Exactly one redirect is written.
func (g *Guard) Expire(w http.ResponseWriter, r *http.Request, sess *shared.Session) {
	sess.AddFlash(shared.FlashMessage{Kind: "error", Message: shared.MsgSessionExpired})
	g.teardown(r.Context(), sess.ID)
	if g.metrics != nil {
		g.metrics.IncAutoLogout()
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

// Drop tears the session's credential down without a notification. Used by
// the explicit logout flow, where the user asked for it.
func (g *Guard) Drop(ctx context.Context, sessionID string) {
	g.teardown(ctx, sessionID)
}

func (g *Guard) teardown(ctx context.Context, sessionID string) {
	g.scheduler.Cancel(sessionID)
	if err := g.store.Clear(ctx, sessionID); err != nil {
		g.logger.Error("clear credential slot", slog.Any("error", err))
	}
}

// onExpire builds the deferred logout for one session. It runs outside any
// request, so the notification is queued directly in redis and the redirect
// happens naturally on the session's next guarded request, which will find
// the slot empty.
func (g *Guard) onExpire(sessionID string) func() {
	return func() {
		ctx := context.Background()
		if err := g.store.Clear(ctx, sessionID); err != nil {
			g.logger.Error("auto-logout clear credential", slog.Any("error", err))
		}
		if err := g.sessions.QueueFlash(ctx, sessionID, shared.FlashMessage{Kind: "error", Message: shared.MsgAutoLoggedOut}); err != nil {
			g.logger.Error("auto-logout queue flash", slog.Any("error", err))
		}
		if g.metrics != nil {
			g.metrics.IncAutoLogout()
		}
		g.logger.Info("session auto-logged out", slog.String("session_id", sessionID))
	}
}

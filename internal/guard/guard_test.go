package guard_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/courierdash/courierdash/internal/guard"
	"github.com/courierdash/courierdash/internal/session"
	"github.com/courierdash/courierdash/internal/shared"
)

type countingMetrics struct {
	autoLogouts atomic.Int32
}

func (c *countingMetrics) IncAutoLogout() { c.autoLogouts.Add(1) }

type fixture struct {
	guard     *guard.Guard
	store     *session.RedisCredentialStore
	scheduler *session.Scheduler
	sessions  *shared.SessionManager
	redis     *redis.Client
	metrics   *countingMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := session.NewRedisCredentialStore(client)
	scheduler := session.NewScheduler()
	sessions := shared.NewSessionManager(client, "test_session", time.Hour, false)
	logger := slog.New(slog.DiscardHandler)
	metrics := &countingMetrics{}
	return &fixture{
		guard:     guard.New(logger, store, scheduler, sessions, metrics, nil),
		store:     store,
		scheduler: scheduler,
		sessions:  sessions,
		redis:     client,
		metrics:   metrics,
	}
}

func mintToken(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"exp": exp.Unix()}
	if role != "" {
		claims["role"] = role
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func protectedRequest(t *testing.T, f *fixture) (*http.Request, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	sess, err := f.sessions.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func TestValidSessionIsAllowed(t *testing.T) {
	f := newFixture(t)
	req, sess := protectedRequest(t, f)

	token := mintToken(t, "Admin", time.Now().Add(time.Hour))
	if err := f.store.Set(req.Context(), sess.ID, token, time.Hour); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	var sawRole string
	rendered := false
	handler := f.guard.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rendered = true
		sawRole = shared.RoleFromContext(r.Context())
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if !rendered {
		t.Fatal("protected content did not render")
	}
	if sawRole != "Admin" {
		t.Fatalf("expected role Admin in context, got %q", sawRole)
	}
	if !f.scheduler.Armed(sess.ID) {
		t.Fatal("auto-logout timer was not armed")
	}
}

func TestExpiredSessionIsDeniedWithNotification(t *testing.T) {
	f := newFixture(t)
	req, sess := protectedRequest(t, f)

	token := mintToken(t, "Editor", time.Now().Add(-time.Second))
	if err := f.store.Set(req.Context(), sess.ID, token, time.Hour); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	handler := f.guard.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("protected content rendered for expired session")
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.Code)
	}
	if loc := res.Header().Get("Location"); loc != guard.LoginPath {
		t.Fatalf("expected redirect to %s, got %q", guard.LoginPath, loc)
	}
	flash := sess.PopFlash()
	if flash == nil || flash.Message != shared.MsgSessionExpired {
		t.Fatalf("expected session expired flash, got %+v", flash)
	}
	if cred, _ := f.store.Get(context.Background(), sess.ID); cred != "" {
		t.Fatalf("expected credential cleared, still holds %q", cred)
	}
}

func TestAbsentSessionIsDeniedSilently(t *testing.T) {
	f := newFixture(t)
	req, sess := protectedRequest(t, f)

	handler := f.guard.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("protected content rendered without a credential")
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.Code)
	}
	if loc := res.Header().Get("Location"); loc != guard.LoginPath {
		t.Fatalf("expected redirect to %s, got %q", guard.LoginPath, loc)
	}
	if flash := sess.PopFlash(); flash != nil {
		t.Fatalf("absent session must redirect without a notification, got %+v", flash)
	}
}

func TestMalformedCredentialFailsClosed(t *testing.T) {
	f := newFixture(t)
	req, sess := protectedRequest(t, f)

	if err := f.store.Set(req.Context(), sess.ID, "not-a-jwt", time.Hour); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	handler := f.guard.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("protected content rendered for malformed credential")
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.Code)
	}
}

func TestAutoLogoutClearsSlotAndQueuesFlash(t *testing.T) {
	f := newFixture(t)
	req, sess := protectedRequest(t, f)

	token := mintToken(t, "Admin", time.Now().Add(1100*time.Millisecond))
	if err := f.store.Set(req.Context(), sess.ID, token, time.Hour); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	handler := f.guard.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !f.scheduler.Armed(sess.ID) {
		t.Fatal("timer not armed")
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		cred, _ := f.store.Get(context.Background(), sess.ID)
		if cred == "" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("credential slot never cleared by auto-logout")
		}
		time.Sleep(20 * time.Millisecond)
	}

	stored, err := f.redis.Get(context.Background(), "session:"+sess.ID).Result()
	if err != nil {
		t.Fatalf("read session payload: %v", err)
	}
	if !strings.Contains(stored, shared.MsgAutoLoggedOut) {
		t.Fatalf("expected auto-logout flash queued, payload: %s", stored)
	}
}

func TestRefreshReplacesStaleTimer(t *testing.T) {
	f := newFixture(t)
	req, sess := protectedRequest(t, f)

	stale := mintToken(t, "Admin", time.Now().Add(400*time.Millisecond))
	if err := f.store.Set(req.Context(), sess.ID, stale, time.Hour); err != nil {
		t.Fatalf("seed credential: %v", err)
	}
	handler := f.guard.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !f.scheduler.Armed(sess.ID) {
		t.Fatal("timer not armed")
	}

	fresh := mintToken(t, "Admin", time.Now().Add(time.Hour))
	if err := f.store.Set(context.Background(), sess.ID, fresh, time.Hour); err != nil {
		t.Fatalf("replace credential: %v", err)
	}
	if err := f.guard.Refresh(sess.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	time.Sleep(700 * time.Millisecond)

	cred, err := f.store.Get(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("read credential: %v", err)
	}
	if cred != fresh {
		t.Fatalf("stale timer clobbered the refreshed credential, slot holds %q", cred)
	}
	if !f.scheduler.Armed(sess.ID) {
		t.Fatal("refreshed timer missing")
	}
}

func TestExpiryPathsCountAutoLogouts(t *testing.T) {
	f := newFixture(t)
	req, sess := protectedRequest(t, f)

	token := mintToken(t, "Editor", time.Now().Add(-time.Second))
	if err := f.store.Set(req.Context(), sess.ID, token, time.Hour); err != nil {
		t.Fatalf("seed credential: %v", err)
	}
	handler := f.guard.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got := f.metrics.autoLogouts.Load(); got != 1 {
		t.Fatalf("expected request-time expiry counted once, got %d", got)
	}

	req2, sess2 := protectedRequest(t, f)
	short := mintToken(t, "Editor", time.Now().Add(200*time.Millisecond))
	if err := f.store.Set(req2.Context(), sess2.ID, short, time.Hour); err != nil {
		t.Fatalf("seed credential: %v", err)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req2)

	deadline := time.Now().Add(3 * time.Second)
	for f.metrics.autoLogouts.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("timer fire never counted, counter at %d", f.metrics.autoLogouts.Load())
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestLogoutCancelsArmedTimer(t *testing.T) {
	f := newFixture(t)
	req, sess := protectedRequest(t, f)

	token := mintToken(t, "Admin", time.Now().Add(time.Hour))
	if err := f.store.Set(req.Context(), sess.ID, token, time.Hour); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	handler := f.guard.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	f.guard.Drop(context.Background(), sess.ID)

	if f.scheduler.Armed(sess.ID) {
		t.Fatal("timer still armed after logout")
	}
	if cred, _ := f.store.Get(context.Background(), sess.ID); cred != "" {
		t.Fatalf("credential survived logout: %q", cred)
	}
}

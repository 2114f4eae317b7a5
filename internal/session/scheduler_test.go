package session_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/courierdash/courierdash/internal/session"
)

func TestArmFiresOnceAfterDelay(t *testing.T) {
	s := session.NewScheduler()
	var fired atomic.Int32

	armedAt := time.Now()
	if _, err := s.Arm("sess-1", armedAt.Add(50*time.Millisecond), func() { fired.Add(1) }); err != nil {
		t.Fatalf("arm: %v", err)
	}

	time.Sleep(150 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("expected exactly one fire, got %d", got)
	}
	if s.Armed("sess-1") {
		t.Fatal("handle should be released after firing")
	}
}

func TestCancelPreventsFire(t *testing.T) {
	s := session.NewScheduler()
	var fired atomic.Int32

	if _, err := s.Arm("sess-1", time.Now().Add(time.Hour), func() { fired.Add(1) }); err != nil {
		t.Fatalf("arm: %v", err)
	}
	s.Cancel("sess-1")

	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("cancelled timer fired %d times", got)
	}
	if s.Armed("sess-1") {
		t.Fatal("cancelled session still has a handle")
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	s := session.NewScheduler()

	// Never-armed session.
	s.Cancel("unknown")

	h, err := s.Arm("sess-1", time.Now().Add(time.Hour), func() {})
	if err != nil {
		t.Fatalf("arm: %v", err)
	}
	s.Cancel("sess-1")
	s.Cancel("sess-1")
	h.Stop()
	h.Stop()

	var nilHandle *session.Handle
	nilHandle.Stop()
}

func TestStopAfterFire(t *testing.T) {
	s := session.NewScheduler()
	done := make(chan struct{})

	h, err := s.Arm("sess-1", time.Now().Add(10*time.Millisecond), func() { close(done) })
	if err != nil {
		t.Fatalf("arm: %v", err)
	}
	<-done
	h.Stop()
	s.Cancel("sess-1")
}

func TestRearmReplacesPriorHandle(t *testing.T) {
	s := session.NewScheduler()
	var stale, fresh atomic.Int32

	if _, err := s.Arm("sess-1", time.Now().Add(30*time.Millisecond), func() { stale.Add(1) }); err != nil {
		t.Fatalf("first arm: %v", err)
	}
	if _, err := s.Arm("sess-1", time.Now().Add(60*time.Millisecond), func() { fresh.Add(1) }); err != nil {
		t.Fatalf("second arm: %v", err)
	}

	time.Sleep(150 * time.Millisecond)
	if got := stale.Load(); got != 0 {
		t.Fatalf("superseded handle fired %d times", got)
	}
	if got := fresh.Load(); got != 1 {
		t.Fatalf("expected replacement handle to fire once, got %d", got)
	}
}

func TestArmRejectsLapsedExpiry(t *testing.T) {
	s := session.NewScheduler()

	for _, at := range []time.Time{time.Now(), time.Now().Add(-time.Second)} {
		if _, err := s.Arm("sess-1", at, func() { t.Fatal("must not fire") }); !errors.Is(err, session.ErrNotArmable) {
			t.Fatalf("expiry %v: expected ErrNotArmable, got %v", at, err)
		}
	}
	if s.Armed("sess-1") {
		t.Fatal("rejected arm left a handle behind")
	}
}

func TestSessionsHoldIndependentHandles(t *testing.T) {
	s := session.NewScheduler()
	var a, b atomic.Int32

	if _, err := s.Arm("sess-a", time.Now().Add(20*time.Millisecond), func() { a.Add(1) }); err != nil {
		t.Fatalf("arm a: %v", err)
	}
	if _, err := s.Arm("sess-b", time.Now().Add(time.Hour), func() { b.Add(1) }); err != nil {
		t.Fatalf("arm b: %v", err)
	}
	s.Cancel("sess-b")

	time.Sleep(100 * time.Millisecond)
	if a.Load() != 1 || b.Load() != 0 {
		t.Fatalf("expected a=1 b=0, got a=%d b=%d", a.Load(), b.Load())
	}
}

package session

import (
	"errors"
	"sync"
	"time"
)

// ErrNotArmable is returned when a caller asks to arm a timer for an expiry
// instant that already passed. Callers are expected to Evaluate first and
// treat such sessions as expired instead of arming.
var ErrNotArmable = errors.New("session: expiry already passed")

// Handle is an armed auto-logout timer. Stop is idempotent and safe to call
// on a handle that already fired or was already stopped.
type Handle struct {
	timer *time.Timer
}

// Stop cancels the pending fire. It has no effect if the timer already fired.
func (h *Handle) Stop() {
	if h == nil || h.timer == nil {
		return
	}
	h.timer.Stop()
}

// Scheduler owns at most one auto-logout timer per session. Re-arming a
// session replaces (and stops) its previous handle, so a superseded closure
// holding a stale credential can never fire.
type Scheduler struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

// NewScheduler constructs an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{handles: make(map[string]*Handle)}
}

// Arm schedules onExpire to run once when expiresAt is reached. Any handle
// previously armed for the session is stopped first. The delay must be
// positive; arming a lapsed session is a caller bug, not a fallback path.
func (s *Scheduler) Arm(sessionID string, expiresAt time.Time, onExpire func()) (*Handle, error) {
	delay := time.Until(expiresAt)
	if delay <= 0 {
		return nil, ErrNotArmable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.handles[sessionID]; ok {
		prev.Stop()
	}

	h := &Handle{}
	h.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.handles[sessionID] == h {
			delete(s.handles, sessionID)
		}
		s.mu.Unlock()
		onExpire()
	})
	s.handles[sessionID] = h
	return h, nil
}

// Cancel stops and forgets the session's armed handle, if any. Calling it
// for an unknown session, or twice, is a no-op.
func (s *Scheduler) Cancel(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.handles[sessionID]; ok {
		h.Stop()
		delete(s.handles, sessionID)
	}
}

// Armed reports whether the session currently has an outstanding handle.
func (s *Scheduler) Armed(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.handles[sessionID]
	return ok
}

package importer

import (
	"sync"
	"sync/atomic"
)

// Session is the cancellation handle of one import. The pipeline checks it
// at its suspension points; cancellation is cooperative, never preemptive.
type Session struct {
	canceled atomic.Bool
}

// Cancel marks the session canceled. Safe to call from any goroutine and
// more than once.
func (s *Session) Cancel() {
	s.canceled.Store(true)
}

// Canceled reports whether the session has been canceled.
func (s *Session) Canceled() bool {
	return s.canceled.Load()
}

// Supervisor owns the active import session. Beginning a new session
// cancels the previous one; the superseded import observes its orphaned
// handle at its next check point and fails out through the normal rollback
// path.
type Supervisor struct {
	mu     sync.Mutex
	active *Session
}

// NewSupervisor creates a Supervisor with no active session.
func NewSupervisor() *Supervisor {
	return &Supervisor{}
}

// Begin cancels any active session and returns a fresh one.
func (sv *Supervisor) Begin() *Session {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	if sv.active != nil {
		sv.active.Cancel()
	}
	sv.active = &Session{}
	return sv.active
}

// CancelActive cancels the active session, if any. Returns whether a
// session was active.
func (sv *Supervisor) CancelActive() bool {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	if sv.active == nil {
		return false
	}
	sv.active.Cancel()
	return true
}

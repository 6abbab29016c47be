package session

import "sync/atomic"

// Tracker publishes the currently active Session so the status API can
// report a read-only snapshot of it. Only one Session is ever active at a
// time (spec §4.G serial connection handling), so there is never more than
// one value to publish.
type Tracker struct {
	current atomic.Pointer[Session]
}

// NewTracker returns a Tracker with no active session.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Set publishes s as the active session. Called by Serve as a connection is
// accepted; exported so other entry points (and tests) can drive a Tracker
// without going through a real listener.
func (t *Tracker) Set(s *Session) { t.current.Store(s) }

// Clear removes the active session, e.g. once a connection closes.
func (t *Tracker) Clear() { t.current.Store(nil) }

// Snapshot is a point-in-time view of a session's replay position, decoupled
// from the cpu/trace/breakpoint types so statusapi does not need to import
// them.
type Snapshot struct {
	SessionID   string
	Cursor      int
	TraceLen    int
	PC          uint64
	PCValid     bool
	AtStart     bool
	AtEnd       bool
	Breakpoints int
}

// Current returns a Snapshot of the active session, or ok=false if no
// debugger is currently connected.
func (t *Tracker) Current() (Snapshot, bool) {
	s := t.current.Load()
	if s == nil {
		return Snapshot{}, false
	}
	pc, pcValid := s.State.PC()
	return Snapshot{
		SessionID:   s.ID,
		Cursor:      s.State.Cursor(),
		TraceLen:    s.Trace.Len(),
		PC:          pc,
		PCValid:     pcValid,
		AtStart:     s.State.AtStart(),
		AtEnd:       s.State.AtEnd(),
		Breakpoints: s.BPs.Len(),
	}, true
}

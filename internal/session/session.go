// Package session ties one accepted debugger connection to a fresh replay
// state: a cpu.State positioned before the first event, an empty breakpoint
// table, and a run controller, wired into an rsp.Dispatcher. Trace data
// itself is shared read-only across sessions; only the cursor/overlay state
// and breakpoints are per-session (spec §4.G).
package session

import (
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/tracereplay/rspreplay/internal/breakpoint"
	"github.com/tracereplay/rspreplay/internal/cpu"
	"github.com/tracereplay/rspreplay/internal/rsp"
	"github.com/tracereplay/rspreplay/internal/runctl"
	"github.com/tracereplay/rspreplay/internal/trace"
)

// Session owns the mutable replay state for a single debugger connection.
type Session struct {
	ID    string
	State *cpu.State
	BPs   *breakpoint.Table
	Ctrl  *runctl.Controller
	Trace trace.Trace
}

// New creates a fresh Session over the shared trace trc with CPU
// capabilities caps. The cursor starts before the first event and the
// breakpoint table starts empty, regardless of any previous session against
// the same trace.
func New(caps cpu.Capability, trc trace.Trace) *Session {
	state := cpu.New(caps, trc)
	bps := breakpoint.New()
	return &Session{
		ID:    uuid.NewString(),
		State: state,
		BPs:   bps,
		Ctrl:  runctl.New(state, bps),
		Trace: trc,
	}
}

// Accept wraps raw as an rsp.Conn bound to this session's state, logging
// with the session's ID on every line so overlapping log output from
// consecutive connections can be told apart.
func (s *Session) Accept(raw net.Conn, logger *slog.Logger) *rsp.Conn {
	sessionLogger := logger.With(slog.String("session", s.ID))
	var conn *rsp.Conn
	disp := rsp.NewDispatcher(s.State, s.BPs, s.Ctrl, func() bool {
		return conn.PeekInterrupt()
	})
	conn = rsp.NewConn(raw, disp, sessionLogger, s.ID)
	return conn
}

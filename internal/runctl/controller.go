// Package runctl implements the breakpoint/run controller: it interprets
// the debugger's step/continue requests, in both directions, as motion over
// a cpu.State cursor, honoring the breakpoint.Table and reporting a stop
// reason the RSP dispatcher can turn into a stop reply.
package runctl

import (
	"github.com/tracereplay/rspreplay/internal/breakpoint"
	"github.com/tracereplay/rspreplay/internal/cpu"
)

// StopReason is why a motion stopped.
type StopReason int

const (
	// StepComplete is returned by a single step that was not blocked by a
	// boundary.
	StepComplete StopReason = iota
	// Breakpoint is returned when a continue motion landed on an armed
	// breakpoint address.
	Breakpoint
	// TraceEnd is returned when a forward motion hit the last event.
	TraceEnd
	// TraceStart is returned when a backward motion hit cursor == -1.
	TraceStart
	// Interrupted is returned when a 0x03 byte was observed mid-motion.
	Interrupted
	// Fault is returned when applying a trace event panicked. Trace data is
	// untrusted input (a corrupt or hand-edited trace file can carry a
	// register id or memory length the cpu.Capability never promised), so a
	// single malformed event must stop the motion instead of crashing the
	// server.
	Fault
)

// Result describes the outcome of a single motion.
type Result struct {
	Reason StopReason
	// PC is the program counter after the motion (or unchanged, for
	// TraceStart/TraceEnd when no motion occurred at all). PCValid mirrors
	// cpu.State.ReadReg's availability.
	PC      uint64
	PCValid bool
	// BPKind is meaningful only when Reason == Breakpoint.
	BPKind breakpoint.Kind
}

// InterruptCheck is polled between individual Advance/Retreat calls during a
// continue motion to detect a debugger-issued 0x03 byte without blocking.
// Implementations peek the connection's socket non-blockingly (see
// internal/rsp.Conn.PeekInterrupt).
type InterruptCheck func() bool

// Controller drives a cpu.State under a breakpoint.Table.
type Controller struct {
	state *cpu.State
	bps   *breakpoint.Table
}

// New builds a Controller over state, consulting bps for continue stops.
func New(state *cpu.State, bps *breakpoint.Table) *Controller {
	return &Controller{state: state, bps: bps}
}

func (c *Controller) pcResult(reason StopReason) Result {
	pc, ok := c.state.PC()
	return Result{Reason: reason, PC: pc, PCValid: ok}
}

// StepForward applies exactly one event, unless the cursor is already at the
// last event, in which case no motion occurs and Reason == TraceEnd. A panic
// while applying the event (malformed trace data) is recovered and reported
// as Fault rather than propagated.
func (c *Controller) StepForward() (result Result) {
	defer c.recoverFault(&result)

	if c.state.AtEnd() {
		return c.pcResult(TraceEnd)
	}
	_ = c.state.Advance()
	return c.pcResult(StepComplete)
}

// StepBackward unapplies exactly one event, unless the cursor is already
// before the first event, in which case no motion occurs and Reason ==
// TraceStart. Same panic recovery as StepForward.
func (c *Controller) StepBackward() (result Result) {
	defer c.recoverFault(&result)

	if c.state.AtStart() {
		return c.pcResult(TraceStart)
	}
	_ = c.state.Retreat()
	return c.pcResult(StepComplete)
}

// ContinueForward repeatedly advances until either the new PC is in the
// breakpoint table, the trace ends, check reports a pending interrupt, or
// applying an event panics.
//
// check is polled after every single Advance, never before the first one:
// this is what gives the controller its no-reentry guarantee (spec property
// 6) — a continue that starts sitting on a breakpoint always makes at least
// one event of forward progress before that breakpoint can stop it again.
//
// The whole loop runs under a single recover: trace data is untrusted, and a
// panic while applying any one event must end the motion with Fault instead
// of taking the server down.
func (c *Controller) ContinueForward(check InterruptCheck) (result Result) {
	defer c.recoverFault(&result)

	for {
		if c.state.AtEnd() {
			return c.pcResult(TraceEnd)
		}
		_ = c.state.Advance()

		if check != nil && check() {
			return c.pcResult(Interrupted)
		}

		pc, ok := c.state.PC()
		if ok {
			if kind, found := c.bps.Contains(pc); found {
				return Result{Reason: Breakpoint, PC: pc, PCValid: true, BPKind: kind}
			}
		}
	}
}

// ContinueBackward repeatedly retreats until either the PC after retreat is
// in the breakpoint table, the trace start is reached, check reports a
// pending interrupt, or applying an event panics. Same no-reentry guarantee
// and fault recovery as ContinueForward, mirrored for the reverse direction.
func (c *Controller) ContinueBackward(check InterruptCheck) (result Result) {
	defer c.recoverFault(&result)

	for {
		if c.state.AtStart() {
			return c.pcResult(TraceStart)
		}
		_ = c.state.Retreat()

		if check != nil && check() {
			return c.pcResult(Interrupted)
		}

		pc, ok := c.state.PC()
		if ok {
			if kind, found := c.bps.Contains(pc); found {
				return Result{Reason: Breakpoint, PC: pc, PCValid: true, BPKind: kind}
			}
		}
	}
}

// recoverFault turns a panic from the deferring method into a Fault result,
// reporting whatever PC the state cursor holds after the failed motion. Not
// called directly; always deferred with &result.
func (c *Controller) recoverFault(result *Result) {
	if r := recover(); r != nil {
		*result = c.pcResult(Fault)
	}
}

package runctl_test

import (
	"testing"

	"github.com/tracereplay/rspreplay/internal/breakpoint"
	"github.com/tracereplay/rspreplay/internal/cpu"
	"github.com/tracereplay/rspreplay/internal/runctl"
	"github.com/tracereplay/rspreplay/internal/trace"
)

const pcReg trace.RegID = 32

// fiveEventTrace: pc goes 0x1000 -> 0x1004 -> 0x1008 -> 0x100c -> 0x1010 -> 0x1014
func fiveEventTrace() trace.Slice {
	pcs := []uint64{0x1000, 0x1004, 0x1008, 0x100c, 0x1010, 0x1014}
	var evs trace.Slice
	for i := 0; i < len(pcs)-1; i++ {
		rw := trace.RegWrite{Reg: pcReg, New: pcs[i+1]}
		if i == 0 {
			rw.OldValid = false
		} else {
			rw.Old = pcs[i]
			rw.OldValid = true
		}
		evs = append(evs, trace.Event{
			Index: i, PCBefore: pcs[i], PCAfter: pcs[i+1],
			RegWrites: []trace.RegWrite{rw},
		})
	}
	return evs
}

func newFixture(t *testing.T) (*cpu.State, *breakpoint.Table, *runctl.Controller) {
	t.Helper()
	st := cpu.New(cpu.NewRV32(), fiveEventTrace())
	bps := breakpoint.New()
	ctrl := runctl.New(st, bps)
	return st, bps, ctrl
}

// TestBreakpointStopPrecedence verifies spec property 5: continue_forward
// from cursor k returns Breakpoint with PC = P iff P is armed and reachable
// without an earlier armed PC in between.
func TestBreakpointStopPrecedence(t *testing.T) {
	t.Parallel()

	_, bps, ctrl := newFixture(t)
	bps.Insert(breakpoint.Breakpoint{Addr: 0x100c, Kind: breakpoint.Software})

	res := ctrl.ContinueForward(nil)
	if res.Reason != runctl.Breakpoint {
		t.Fatalf("Reason = %v, want Breakpoint", res.Reason)
	}
	if res.PC != 0x100c {
		t.Fatalf("PC = %#x, want 0x100c", res.PC)
	}
	if res.BPKind != breakpoint.Software {
		t.Fatalf("BPKind = %v, want Software", res.BPKind)
	}
}

// TestNoReentryAfterBreakpoint verifies spec property 6: a continue_forward
// issued again from a stopped-on-breakpoint state makes forward progress
// before re-testing the breakpoint set, rather than stopping immediately.
func TestNoReentryAfterBreakpoint(t *testing.T) {
	t.Parallel()

	st, bps, ctrl := newFixture(t)
	bps.Insert(breakpoint.Breakpoint{Addr: 0x1008, Kind: breakpoint.Software})

	first := ctrl.ContinueForward(nil)
	if first.Reason != runctl.Breakpoint || first.PC != 0x1008 {
		t.Fatalf("first continue: %+v", first)
	}

	second := ctrl.ContinueForward(nil)
	if second.Reason != runctl.TraceEnd {
		t.Fatalf("second continue Reason = %v, want TraceEnd (should run to completion, not re-trigger immediately)", second.Reason)
	}
	if st.Cursor() != 4 {
		t.Fatalf("cursor = %d, want 4 (end of 5-event trace)", st.Cursor())
	}
}

func TestContinueForwardHitsTraceEnd(t *testing.T) {
	t.Parallel()

	_, _, ctrl := newFixture(t)
	res := ctrl.ContinueForward(nil)
	if res.Reason != runctl.TraceEnd {
		t.Fatalf("Reason = %v, want TraceEnd", res.Reason)
	}
}

func TestContinueBackwardToTraceStart(t *testing.T) {
	t.Parallel()

	st, _, ctrl := newFixture(t)
	for !st.AtEnd() {
		if err := st.Advance(); err != nil {
			t.Fatal(err)
		}
	}

	res := ctrl.ContinueBackward(nil)
	if res.Reason != runctl.TraceStart {
		t.Fatalf("Reason = %v, want TraceStart", res.Reason)
	}
	if !st.AtStart() {
		t.Fatalf("cursor = %d, want -1", st.Cursor())
	}
}

func TestInterruptDuringContinue(t *testing.T) {
	t.Parallel()

	_, _, ctrl := newFixture(t)
	calls := 0
	check := func() bool {
		calls++
		return calls >= 2
	}

	res := ctrl.ContinueForward(check)
	if res.Reason != runctl.Interrupted {
		t.Fatalf("Reason = %v, want Interrupted", res.Reason)
	}
}

func TestStepForwardAndBackward(t *testing.T) {
	t.Parallel()

	_, _, ctrl := newFixture(t)

	res := ctrl.StepForward()
	if res.Reason != runctl.StepComplete || res.PC != 0x1004 {
		t.Fatalf("StepForward() = %+v, want StepComplete at 0x1004", res)
	}

	res = ctrl.StepBackward()
	if res.Reason != runctl.StepComplete {
		t.Fatalf("StepBackward() = %+v, want StepComplete", res)
	}
}

// Package cpu implements the replayable CPU state cursor: an index over a
// trace.Trace that maintains, at any position, the architectural registers
// and a sparse memory overlay consistent with every event up to that index.
//
// The cursor never executes or simulates an instruction; Advance and Retreat
// only apply or unapply the deltas a trace.Event already recorded. This is
// what lets reverse-continue and reverse-step exist at all: a trace replay
// server doesn't need an inverse interpreter, only an inverse of "apply a
// delta".
package cpu

import (
	"errors"

	"github.com/tracereplay/rspreplay/internal/trace"
)

// ErrAtEnd is returned by Advance when the cursor is already at the last
// event of the trace.
var ErrAtEnd = errors.New("cpu: cursor already at end of trace")

// ErrAtStart is returned by Retreat when the cursor is already at -1
// ("before first event").
var ErrAtStart = errors.New("cpu: cursor already before first event")

// Byte is one memory byte as read from the overlay: either a concrete value
// or "unavailable" (Valid == false), per spec invariant I2.
type Byte struct {
	Value byte
	Valid bool
}

type regState struct {
	value uint64
	valid bool
}

// State is the CPU state cursor: registers + sparse memory overlay + cursor
// position over a single trace.Trace.
type State struct {
	caps Capability
	trc  trace.Trace

	cursor int

	registers map[trace.RegID]regState
	// shadow holds debugger-issued (P/G) register writes. It overrides
	// ReadReg until the next Advance/Retreat, which clears it entirely —
	// see spec §9 "Shadow register writes".
	shadow map[trace.RegID]uint64

	memory map[uint64]byte
}

// New constructs a State positioned before the first event (cursor == -1).
func New(caps Capability, trc trace.Trace) *State {
	return &State{
		caps:      caps,
		trc:       trc,
		cursor:    -1,
		registers: make(map[trace.RegID]regState),
		shadow:    make(map[trace.RegID]uint64),
		memory:    make(map[uint64]byte),
	}
}

// Capability returns the architecture capability set this state was built
// with.
func (s *State) Capability() Capability { return s.caps }

// Cursor returns the current trace index, or -1 if before the first event.
func (s *State) Cursor() int { return s.cursor }

// AtStart reports whether the cursor is before the first event.
func (s *State) AtStart() bool { return s.cursor == -1 }

// AtEnd reports whether the cursor is at the last event (Advance would
// fail).
func (s *State) AtEnd() bool { return s.cursor+1 >= s.trc.Len() }

// Advance applies event[cursor+1] and increments the cursor.
func (s *State) Advance() error {
	if s.AtEnd() {
		return ErrAtEnd
	}
	ev := s.trc.Event(s.cursor + 1)
	s.applyForward(ev)
	s.cursor++
	s.clearShadow()
	return nil
}

// Retreat unapplies event[cursor] and decrements the cursor.
func (s *State) Retreat() error {
	if s.AtStart() {
		return ErrAtStart
	}
	ev := s.trc.Event(s.cursor)
	s.applyBackward(ev)
	s.cursor--
	s.clearShadow()
	return nil
}

func (s *State) clearShadow() {
	if len(s.shadow) > 0 {
		s.shadow = make(map[trace.RegID]uint64)
	}
}

func (s *State) applyForward(ev trace.Event) {
	for _, rw := range ev.RegWrites {
		s.registers[rw.Reg] = regState{value: rw.New, valid: true}
	}
	for _, mw := range ev.MemWrites {
		writeBytes(s.memory, mw.Addr, mw.New)
	}
	for _, mr := range ev.MemReads {
		fillAbsent(s.memory, mr.Addr, mr.Bytes)
	}
}

func (s *State) applyBackward(ev trace.Event) {
	for _, rw := range ev.RegWrites {
		if rw.OldValid {
			s.registers[rw.Reg] = regState{value: rw.Old, valid: true}
		} else {
			delete(s.registers, rw.Reg)
		}
	}
	for _, mw := range ev.MemWrites {
		if mw.OldValid {
			writeBytes(s.memory, mw.Addr, mw.Old)
		} else {
			eraseBytes(s.memory, mw.Addr, mw.Width)
		}
	}
	// mem_reads are monotone observations and are never unapplied.
}

func writeBytes(mem map[uint64]byte, addr uint64, data []byte) {
	for i, b := range data {
		mem[addr+uint64(i)] = b
	}
}

func eraseBytes(mem map[uint64]byte, addr uint64, width int) {
	for i := 0; i < width; i++ {
		delete(mem, addr+uint64(i))
	}
}

func fillAbsent(mem map[uint64]byte, addr uint64, data []byte) {
	for i, b := range data {
		a := addr + uint64(i)
		if _, ok := mem[a]; !ok {
			mem[a] = b
		}
	}
}

// ReadReg returns the current value of register id. A shadow write (from a
// debugger P/G packet, see WriteReg) takes precedence until the next
// Advance/Retreat. ok is false when the register has never been set by the
// trace (e.g. cursor == -1, or its defining event's old value was absent
// and a Retreat crossed it).
func (s *State) ReadReg(id trace.RegID) (value uint64, ok bool) {
	if v, found := s.shadow[id]; found {
		return v, true
	}
	rs, found := s.registers[id]
	if !found {
		return 0, false
	}
	return rs.value, rs.valid
}

// WriteReg records a debugger-issued shadow write to register id. It never
// mutates trace-derived state and has no effect on replay semantics; it is
// visible to ReadReg only until the next motion (spec §9).
func (s *State) WriteReg(id trace.RegID, value uint64) {
	s.shadow[id] = value
}

// ReadMem returns length bytes from addr. Bytes with no recorded write or
// read observation at or before the cursor report Valid == false.
func (s *State) ReadMem(addr uint64, length int) []Byte {
	out := make([]Byte, length)
	for i := 0; i < length; i++ {
		a := addr + uint64(i)
		if v, ok := s.memory[a]; ok {
			out[i] = Byte{Value: v, Valid: true}
		}
	}
	return out
}

// WriteMem stores data into the memory overlay unconditionally, shadowing
// (but not perturbing) trace semantics. This is how the debugger's `load`
// command and manual memory pokes are served; unlike register writes, these
// persist across Advance/Retreat since they aren't reset on motion.
func (s *State) WriteMem(addr uint64, data []byte) {
	writeBytes(s.memory, addr, data)
}

// PC returns the current program counter value, i.e. register
// PCRegisterID. That register changes only through RegWrites for it (and
// shadow writes); Event.PCBefore/PCAfter are not applied. ok is false while
// no applied event has written it, or after a Retreat across a write to it
// that carried no old value.
func (s *State) PC() (value uint64, ok bool) {
	return s.ReadReg(s.caps.PCRegisterID)
}

// Package trace defines the normalized trace-event model that the replayable
// CPU state machine consumes. A trace is a finite, densely indexed sequence
// of retired-instruction records produced by a format-specific parser
// (internal/traceio) and handed to internal/cpu by index.
package trace

import "fmt"

// RegID is an architectural register index, including the program counter.
type RegID uint32

// RegWrite is a single register mutation recorded for one retired
// instruction. Old is absent (OldValid == false) when the trace has no
// pre-image for the register, typically on its first write in the trace;
// retreating across such a write leaves the register unavailable (see
// internal/cpu).
type RegWrite struct {
	Reg      RegID
	Old      uint64
	OldValid bool
	New      uint64
}

// MemWrite is a single memory mutation recorded for one retired instruction.
// Old is absent (OldValid == false) when the format could not recover a
// pre-image for that address range; see the "missing old values" design
// note for how retreat handles this.
type MemWrite struct {
	Addr     uint64
	Width    int
	Old      []byte
	OldValid bool
	New      []byte
}

// MemRead is an observed memory read. Reads populate the sparse memory
// overlay lazily and are never unapplied by retreat — they are monotone
// observations, not mutations.
type MemRead struct {
	Addr  uint64
	Width int
	Bytes []byte
}

// Event is one immutable, normalized retired-instruction record.
type Event struct {
	Index    int
	PCBefore uint64
	PCAfter  uint64
	RegWrites []RegWrite
	MemWrites []MemWrite
	MemReads  []MemRead
	// DisasmHint is an optional textual hint; the protocol never reads it.
	DisasmHint string
}

// Validate reports whether e is internally consistent as the event at
// position idx following prev (prev == nil for idx == 0).
func (e Event) Validate(idx int, prev *Event) error {
	if e.Index != idx {
		return fmt.Errorf("trace: event index %d does not match position %d (dense indexing required)", e.Index, idx)
	}
	if prev != nil && prev.PCAfter != e.PCBefore {
		return fmt.Errorf("trace: event %d pc_before=%#x does not match event %d pc_after=%#x", idx, e.PCBefore, idx-1, prev.PCAfter)
	}
	return nil
}

// Trace is a restartable, ordered sequence of Events with O(1) random
// access by index, as required by internal/cpu's cursor jumps.
type Trace interface {
	// Len returns the number of events in the trace.
	Len() int
	// Event returns the event at position i. i must be in [0, Len()).
	Event(i int) Event
}

// Slice is the simplest Trace implementation: a fully materialized,
// in-memory sequence. Parsers that can produce random-access data directly
// (e.g. because they mmap the trace file) should return a Slice.
type Slice []Event

// Len implements Trace.
func (s Slice) Len() int { return len(s) }

// Event implements Trace.
func (s Slice) Event(i int) Event { return s[i] }

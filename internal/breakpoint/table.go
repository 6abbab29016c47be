// Package breakpoint implements the process-wide software/hardware
// breakpoint table consulted by the run controller. There is no per-thread
// scoping: the replayed session is single-hart.
package breakpoint

// Kind distinguishes RSP Z0/z0 (software) from Z1/z1 (hardware) entries.
// The run controller treats both identically, since no instructions
// actually execute during replay.
type Kind int

const (
	Software Kind = iota
	Hardware
)

// Breakpoint is a single entry: an address, a kind, and the byte length GDB
// supplied (carried for completeness; Contains only keys on address+kind).
type Breakpoint struct {
	Addr   uint64
	Kind   Kind
	Length int
}

type key struct {
	addr uint64
	kind Kind
}

// Table is the set of active breakpoints. The zero value is not usable;
// construct with New.
type Table struct {
	entries map[key]Breakpoint
}

// New returns an empty breakpoint table.
func New() *Table {
	return &Table{entries: make(map[key]Breakpoint)}
}

// Insert adds or replaces the breakpoint at (addr, kind).
func (t *Table) Insert(bp Breakpoint) {
	t.entries[key{addr: bp.Addr, kind: bp.Kind}] = bp
}

// Remove deletes the breakpoint at (addr, kind), if any.
func (t *Table) Remove(addr uint64, kind Kind) {
	delete(t.entries, key{addr: addr, kind: kind})
}

// Contains reports whether any breakpoint (of either kind) is set at addr,
// and which kind was matched. Software is preferred when both are present
// at the same address, since the dispatcher must report exactly one of
// swbreak/hwbreak in the stop reply.
func (t *Table) Contains(addr uint64) (kind Kind, ok bool) {
	if _, found := t.entries[key{addr: addr, kind: Software}]; found {
		return Software, true
	}
	if _, found := t.entries[key{addr: addr, kind: Hardware}]; found {
		return Hardware, true
	}
	return 0, false
}

// Len returns the number of breakpoints currently set.
func (t *Table) Len() int { return len(t.entries) }

// Clear removes all breakpoints. A new connection does not reuse a table:
// session.New builds a fresh one with New.
func (t *Table) Clear() {
	t.entries = make(map[key]Breakpoint)
}

package cpu

import "github.com/tracereplay/rspreplay/internal/trace"

// Capability describes the architecture a session replays: how many
// registers it has, how wide each one is, which register is the program
// counter, and (optionally) the target-description XML served through
// qXfer:features:read. Adding a new target means
// constructing a new Capability value, never subclassing State.
type Capability struct {
	// RegisterCount is the number of architectural registers, including PC.
	RegisterCount int
	// RegisterWidths maps register id to its width in bits. A register
	// absent from this map is assumed to have DefaultWidth bits.
	RegisterWidths map[trace.RegID]int
	// DefaultWidth is used for any register not present in RegisterWidths.
	DefaultWidth int
	// PCRegisterID is the architectural index of the program counter.
	PCRegisterID trace.RegID
	// TargetXML is served via qXfer:features:read:target.xml when non-empty.
	// If empty, the dispatcher relies on the debugger's built-in
	// architecture description, so RegisterCount/RegisterWidths/order here
	// must match that fallback exactly.
	TargetXML string
}

// WidthOf returns the width in bits of register id.
func (c Capability) WidthOf(id trace.RegID) int {
	if w, ok := c.RegisterWidths[id]; ok {
		return w
	}
	return c.DefaultWidth
}

// WidthBytes returns the width in bytes of register id, rounded up.
func (c Capability) WidthBytes(id trace.RegID) int {
	return (c.WidthOf(id) + 7) / 8
}

// NewRV32 returns the capability set for a generic 32-bit RISC-V target:
// x0..x31 at register ids 0..31, pc at register id 32, all 32 bits wide.
// This is the variant cmd/rspd ships by default.
func NewRV32() Capability {
	return Capability{
		RegisterCount: 33,
		DefaultWidth:  32,
		PCRegisterID:  32,
	}
}

// NewRV64 returns the capability set for a generic 64-bit RISC-V target:
// x0..x31 at register ids 0..31, pc at register id 32, all 64 bits wide.
func NewRV64() Capability {
	return Capability{
		RegisterCount: 33,
		DefaultWidth:  64,
		PCRegisterID:  32,
	}
}

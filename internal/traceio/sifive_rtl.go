package traceio

import "io"

// ParseSifiveRTL reads the line-oriented trace format produced by dumping a
// SiFive RTL simulation's retirement log. Unlike Spike, the RTL testbench
// does not always capture a memory pre-image before a store retires (the
// waveform dump that would supply it may start partway through a run); such
// writes carry "?" in place of the old-value field and the resulting
// trace.MemWrite.OldValid is false. The replay core handles that by marking
// the affected bytes unavailable on retreat rather than failing the whole
// session (see internal/cpu).
func ParseSifiveRTL(r io.Reader) (*lineProducer, error) {
	return newLineProducer(r), nil
}

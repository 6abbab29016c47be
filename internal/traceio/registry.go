// Package traceio provides the trace-file parsers that sit outside the
// replay core (spec §1 "Out of scope... treated as external collaborators",
// §6 "Trace-event interface"). Each parser reads one simulator's log format
// and yields a trace.Producer the core materializes into a trace.Slice.
package traceio

import (
	"fmt"
	"io"
)

// Parser turns a simulator trace log into a trace.Producer. The producer
// reads r once, front to back; it cannot be restarted.
type Parser func(r io.Reader) (*lineProducer, error)

var registry = map[string]Parser{
	"spike":      ParseSpike,
	"sifive-rtl": ParseSifiveRTL,
}

// Lookup resolves a -f/--format name to its Parser. The second return value
// is false for an unknown format name.
func Lookup(format string) (Parser, bool) {
	p, ok := registry[format]
	return p, ok
}

// Names lists the registered format names, for CLI usage text.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	return names
}

// ErrUnknownFormat is returned by cmd/rspd when -f names a format with no
// registered parser.
type ErrUnknownFormat struct {
	Format string
}

func (e ErrUnknownFormat) Error() string {
	return fmt.Sprintf("traceio: unknown trace format %q", e.Format)
}

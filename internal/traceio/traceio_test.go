package traceio

import (
	"strings"
	"testing"

	"github.com/tracereplay/rspreplay/internal/trace"
)

func TestParseSpikeRoundTrip(t *testing.T) {
	t.Parallel()

	log := strings.Join([]string{
		"0 1000 1004 REG:20=0:1004 ; auipc t0,0x0",
		"1 1004 1008 REG:a=5:9 MEMW:2000:4=cafebabe:deadbeef ; sw t0,0(a0)",
		"2 1008 100c MEMR:2000:4=deadbeef ; lw a1,0(a0)",
	}, "\n")

	p, err := ParseSpike(strings.NewReader(log))
	if err != nil {
		t.Fatalf("ParseSpike: %v", err)
	}
	events, err := trace.Materialize(p)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[1].MemWrites[0].Addr != 0x2000 || !events[1].MemWrites[0].OldValid {
		t.Fatalf("unexpected MEMW parse: %+v", events[1].MemWrites[0])
	}
	if events[2].MemReads[0].Bytes[0] != 0xde {
		t.Fatalf("unexpected MEMR byte order: %x", events[2].MemReads[0].Bytes)
	}
}

func TestParseSifiveRTLMissingOldValue(t *testing.T) {
	t.Parallel()

	log := "0 1000 1004 MEMW:3000:4=?:11223344 ; sw t1,0(a2)"

	p, err := ParseSifiveRTL(strings.NewReader(log))
	if err != nil {
		t.Fatalf("ParseSifiveRTL: %v", err)
	}
	events, err := trace.Materialize(p)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if events[0].MemWrites[0].OldValid {
		t.Fatalf("expected OldValid=false for '?' pre-image")
	}
}

func TestMaterializeRejectsUnparsableLine(t *testing.T) {
	t.Parallel()

	p, err := ParseSpike(strings.NewReader("not a valid trace line"))
	if err != nil {
		t.Fatalf("ParseSpike: %v", err)
	}
	if _, err := trace.Materialize(p); err == nil {
		t.Fatalf("expected Materialize to reject a malformed line")
	}
}

func TestLookupKnownFormats(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"spike", "sifive-rtl"} {
		if _, ok := Lookup(name); !ok {
			t.Fatalf("expected format %q to be registered", name)
		}
	}
	if _, ok := Lookup("unknown-format"); ok {
		t.Fatalf("expected unknown format to be absent")
	}
}

package breakpoint_test

import "testing"
import "github.com/tracereplay/rspreplay/internal/breakpoint"

func TestInsertContainsRemove(t *testing.T) {
	t.Parallel()

	tbl := breakpoint.New()
	if _, ok := tbl.Contains(0x1000); ok {
		t.Fatal("expected empty table to contain nothing")
	}

	tbl.Insert(breakpoint.Breakpoint{Addr: 0x1000, Kind: breakpoint.Software, Length: 4})
	if kind, ok := tbl.Contains(0x1000); !ok || kind != breakpoint.Software {
		t.Fatalf("Contains(0x1000) = (%v, %v), want (Software, true)", kind, ok)
	}

	tbl.Remove(0x1000, breakpoint.Software)
	if _, ok := tbl.Contains(0x1000); ok {
		t.Fatal("expected breakpoint to be removed")
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	tbl := breakpoint.New()
	tbl.Insert(breakpoint.Breakpoint{Addr: 1, Kind: breakpoint.Software})
	tbl.Insert(breakpoint.Breakpoint{Addr: 2, Kind: breakpoint.Hardware})
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}
	tbl.Clear()
	if tbl.Len() != 0 {
		t.Fatalf("Len() after Clear() = %d, want 0", tbl.Len())
	}
}

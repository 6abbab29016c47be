package trace_test

import (
	"testing"

	"github.com/tracereplay/rspreplay/internal/trace"
)

// TestEventValidateDenseIndexing verifies that Validate rejects a
// non-dense index and a pc_before/pc_after mismatch with the prior event.
func TestEventValidateDenseIndexing(t *testing.T) {
	t.Parallel()

	first := trace.Event{Index: 0, PCBefore: 0x1000, PCAfter: 0x1004}
	if err := first.Validate(0, nil); err != nil {
		t.Fatalf("unexpected error for first event: %v", err)
	}

	cases := []struct {
		name    string
		ev      trace.Event
		idx     int
		prev    *trace.Event
		wantErr bool
	}{
		{
			name:    "dense and continuous",
			ev:      trace.Event{Index: 1, PCBefore: 0x1004, PCAfter: 0x1008},
			idx:     1,
			prev:    &first,
			wantErr: false,
		},
		{
			name:    "non-dense index",
			ev:      trace.Event{Index: 2, PCBefore: 0x1004, PCAfter: 0x1008},
			idx:     1,
			prev:    &first,
			wantErr: true,
		},
		{
			name:    "pc discontinuity",
			ev:      trace.Event{Index: 1, PCBefore: 0x2000, PCAfter: 0x2004},
			idx:     1,
			prev:    &first,
			wantErr: true,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.ev.Validate(tc.idx, tc.prev)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

// fakeProducer replays a fixed slice of events through the Producer
// interface so Materialize can be exercised without a real parser.
type fakeProducer struct {
	events []trace.Event
	pos    int
}

func (f *fakeProducer) Next() (trace.Event, bool) {
	if f.pos >= len(f.events) {
		return trace.Event{}, false
	}
	ev := f.events[f.pos]
	f.pos++
	return ev, true
}

func TestMaterializeValidSequence(t *testing.T) {
	t.Parallel()

	p := &fakeProducer{events: []trace.Event{
		{Index: 0, PCBefore: 0x1000, PCAfter: 0x1004},
		{Index: 1, PCBefore: 0x1004, PCAfter: 0x1008},
		{Index: 2, PCBefore: 0x1008, PCAfter: 0x100c},
	}}

	got, err := trace.Materialize(p)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if got.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", got.Len())
	}
	if got.Event(2).PCAfter != 0x100c {
		t.Fatalf("Event(2).PCAfter = %#x, want 0x100c", got.Event(2).PCAfter)
	}
}

func TestMaterializeRejectsDiscontinuity(t *testing.T) {
	t.Parallel()

	p := &fakeProducer{events: []trace.Event{
		{Index: 0, PCBefore: 0x1000, PCAfter: 0x1004},
		{Index: 1, PCBefore: 0xdead, PCAfter: 0x1008},
	}}

	if _, err := trace.Materialize(p); err == nil {
		t.Fatal("expected error for discontinuous trace, got nil")
	}
}

package session

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"

	"github.com/tracereplay/rspreplay/internal/cpu"
	"github.com/tracereplay/rspreplay/internal/trace"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tinyTrace() trace.Slice {
	return trace.Slice{
		{
			Index:    0,
			PCBefore: 0x1000,
			PCAfter:  0x1004,
			RegWrites: []trace.RegWrite{
				{Reg: 32, Old: 0x1000, OldValid: true, New: 0x1004},
			},
		},
	}
}

func TestSessionGetsFreshStateEachTime(t *testing.T) {
	t.Parallel()

	caps := cpu.NewRV32()
	trc := tinyTrace()

	s1 := New(caps, trc)
	s1.State.Advance()
	if s1.State.Cursor() != 0 {
		t.Fatalf("expected cursor 0 after advance, got %d", s1.State.Cursor())
	}

	s2 := New(caps, trc)
	if s2.State.Cursor() != -1 {
		t.Fatalf("new session should start before the first event, got cursor %d", s2.State.Cursor())
	}
	if s1.ID == s2.ID {
		t.Fatalf("expected distinct session IDs")
	}
}

func TestAcceptServesQuestionMarkPacket(t *testing.T) {
	t.Parallel()

	caps := cpu.NewRV32()
	trc := tinyTrace()
	sess := New(caps, trc)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	conn := sess.Accept(serverConn, discardLogger())
	go conn.Serve()

	if _, err := clientConn.Write([]byte("$?#3f")); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := bufio.NewReader(clientConn)
	ack, err := r.ReadByte()
	if err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack != '+' {
		t.Fatalf("expected ack '+', got %q", ack)
	}

	frame, err := r.ReadString('#')
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if !strings.HasPrefix(frame, "$S05#") {
		t.Fatalf("expected stop reply S05, got %q", frame)
	}
}

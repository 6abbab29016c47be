package rsp

import (
	"errors"
	"io"
	"log/slog"
	"net"
)

// Conn drives one debugger connection: the byte pump between the socket and
// the Codec/Dispatcher (spec §4.G Connection Loop). Only one connection is
// served at a time; Serve returns when the connection closes.
type Conn struct {
	raw    net.Conn
	codec  *Codec
	disp   *Dispatcher
	logger *slog.Logger
	id     string
}

// NewConn wraps raw for one session, dispatching decoded packets through
// disp. id is a short identifier included in every log line for this
// connection (see internal/session for how it's generated).
func NewConn(raw net.Conn, disp *Dispatcher, logger *slog.Logger, id string) *Conn {
	return &Conn{
		raw:    raw,
		codec:  NewCodec(raw, raw),
		disp:   disp,
		logger: logger,
		id:     id,
	}
}

// PeekInterrupt reports whether a Ctrl-C (0x03) byte is currently pending on
// the connection, without consuming anything the codec's buffered reader
// would otherwise see. It is safe to call only while no Codec.ReadPacket
// call is in flight (i.e. during a continue motion) — see
// interrupt_unix.go/interrupt_other.go for why that invariant matters.
func (c *Conn) PeekInterrupt() bool {
	return peekInterruptByte(c.raw)
}

// Serve runs the request/reply loop until the connection closes or a fatal
// protocol/transport error occurs (spec §7). The dispatcher's continue
// motions use c.PeekInterrupt as their InterruptCheck.
func (c *Conn) Serve() error {
	defer c.raw.Close()

	for {
		ev, err := c.codec.ReadPacket()
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.logger.Info("rsp: connection closed", slog.String("session", c.id))
				return nil
			}
			c.logger.Error("rsp: fatal transport/protocol error", slog.String("session", c.id), slog.Any("error", err))
			return err
		}

		if ev.IsInterrupt {
			// A Ctrl-C while already stopped has nothing to abort; the
			// debugger will follow up with its next real command.
			continue
		}

		resp := c.disp.Dispatch(ev.Payload)

		if err := c.codec.WritePacket([]byte(resp.Payload)); err != nil {
			c.logger.Error("rsp: write failed", slog.String("session", c.id), slog.Any("error", err))
			return err
		}

		if resp.EnterNoAck {
			c.codec.SetNoAck(true)
		}

		if resp.CloseAfter {
			c.logger.Error("rsp: closing connection after unrecoverable dispatch fault", slog.String("session", c.id))
			return nil
		}
	}
}

// Package rsp implements the RSP (Remote Serial Protocol) packet codec and
// command dispatcher: framing, checksum, escape/run-length handling, the
// +/- acknowledgement dance, and the mapping from parsed packets onto
// CPU-state, breakpoint-table, and run-controller operations.
package rsp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

const (
	frameStart  = '$'
	frameEnd    = '#'
	escapeByte  = '}'
	rleByte     = '*'
	ackByte     = '+'
	nackByte    = '-'
	interrupt   = 0x03
	escapeXOR   = 0x20
	rleBaseSkew = 29 // run-length count is encoded as (count + 29)
)

// maxChecksumRetries bounds how many consecutive bad-checksum packets the
// codec tolerates before treating the connection as unrecoverable (spec
// §7 ProtocolError: "fatal only on repeated checksum failure").
const maxChecksumRetries = 5

// ErrChecksumRetriesExceeded is returned by ReadPacket when
// maxChecksumRetries consecutive packets fail checksum validation.
var ErrChecksumRetriesExceeded = errors.New("rsp: too many consecutive checksum failures")

// Checksum computes the RSP 8-bit sum-mod-256 checksum over data exactly as
// it appears on the wire (i.e. after escaping/run-length expansion has been
// applied to produce the wire bytes) — matching the way a receiver computes
// it before it has unescaped anything.
func Checksum(wire []byte) byte {
	var sum byte
	for _, b := range wire {
		sum += b
	}
	return sum
}

// escapeWire returns payload with '$', '#', '}', and '*' escaped via the
// '}'-prefix / XOR-0x20 rule. The codec never emits run-length sequences of
// its own; only escaping is needed to produce valid wire bytes.
func escapeWire(payload []byte) []byte {
	out := make([]byte, 0, len(payload))
	for _, b := range payload {
		switch b {
		case frameStart, frameEnd, escapeByte, rleByte:
			out = append(out, escapeByte, b^escapeXOR)
		default:
			out = append(out, b)
		}
	}
	return out
}

// unescapeWire reverses escapeWire and expands run-length sequences,
// recovering the original payload from wire bytes.
func unescapeWire(wire []byte) ([]byte, error) {
	out := make([]byte, 0, len(wire))
	for i := 0; i < len(wire); i++ {
		b := wire[i]
		switch b {
		case escapeByte:
			i++
			if i >= len(wire) {
				return nil, errors.New("rsp: truncated escape sequence")
			}
			out = append(out, wire[i]^escapeXOR)
		case rleByte:
			i++
			if i >= len(wire) {
				return nil, errors.New("rsp: truncated run-length sequence")
			}
			count := int(wire[i]) - rleBaseSkew
			if count < 0 || len(out) == 0 {
				return nil, errors.New("rsp: invalid run-length count")
			}
			last := out[len(out)-1]
			for j := 0; j < count; j++ {
				out = append(out, last)
			}
		default:
			out = append(out, b)
		}
	}
	return out, nil
}

// EncodePacket frames payload as "$<escaped payload>#<checksum>".
func EncodePacket(payload []byte) []byte {
	wire := escapeWire(payload)
	cs := Checksum(wire)
	framed := make([]byte, 0, len(wire)+4)
	framed = append(framed, frameStart)
	framed = append(framed, wire...)
	framed = append(framed, frameEnd)
	framed = append(framed, fmt.Sprintf("%02x", cs)...)
	return framed
}

// Codec frames a byte stream into RSP packets and back, handling the
// +/- acknowledgement protocol and noack mode (§4.E).
type Codec struct {
	r     *bufio.Reader
	w     io.Writer
	noAck bool
}

// NewCodec wraps rw for RSP framing. Reads are buffered internally.
func NewCodec(r io.Reader, w io.Writer) *Codec {
	return &Codec{r: bufio.NewReader(r), w: w}
}

// SetNoAck enters or leaves noack mode. The dispatcher calls this after
// sending the OK reply to qStartNoAckMode.
func (c *Codec) SetNoAck(on bool) { c.noAck = on }

// NoAck reports whether noack mode is active.
func (c *Codec) NoAck() bool { return c.noAck }

// ReadEvent is one unit handed back by ReadPacket: either a decoded payload
// or a bare interrupt signal (byte 0x03 seen outside a packet frame).
type ReadEvent struct {
	Payload     string
	IsInterrupt bool
}

// ReadPacket blocks until it has a complete, checksum-valid packet, an
// interrupt byte, or an unrecoverable error. It sends '+'/'-' acks as it
// goes (suppressed in noack mode).
func (c *Codec) ReadPacket() (ReadEvent, error) {
	badChecksums := 0
	for {
		b, err := c.r.ReadByte()
		if err != nil {
			return ReadEvent{}, err
		}
		switch b {
		case interrupt:
			return ReadEvent{IsInterrupt: true}, nil
		case frameStart:
			wire, csHex, err := c.readFrameBody()
			if err != nil {
				return ReadEvent{}, err
			}
			want := Checksum(wire)
			got, perr := parseHexByte(csHex)
			if perr != nil || got != want {
				badChecksums++
				if !c.noAck {
					if _, werr := c.w.Write([]byte{nackByte}); werr != nil {
						return ReadEvent{}, werr
					}
				}
				if badChecksums >= maxChecksumRetries {
					return ReadEvent{}, ErrChecksumRetriesExceeded
				}
				continue
			}
			if !c.noAck {
				if _, werr := c.w.Write([]byte{ackByte}); werr != nil {
					return ReadEvent{}, werr
				}
			}
			payload, uerr := unescapeWire(wire)
			if uerr != nil {
				return ReadEvent{}, uerr
			}
			return ReadEvent{Payload: string(payload)}, nil
		default:
			// Noise before '$' is discarded per §4.E.
			continue
		}
	}
}

// readFrameBody reads wire bytes (escape/RLE still applied) up to the
// unescaped '#', then the two checksum hex digits that follow it.
// Escape and run-length marker bytes always consume exactly one more byte,
// so a '#' appearing as the second byte of such a pair is not mistaken for
// the frame terminator.
func (c *Codec) readFrameBody() (wire []byte, checksumHex string, err error) {
	for {
		b, err := c.r.ReadByte()
		if err != nil {
			return nil, "", err
		}
		switch b {
		case escapeByte, rleByte:
			next, err := c.r.ReadByte()
			if err != nil {
				return nil, "", err
			}
			wire = append(wire, b, next)
		case frameEnd:
			cs := make([]byte, 2)
			if _, err := io.ReadFull(c.r, cs); err != nil {
				return nil, "", err
			}
			return wire, string(cs), nil
		default:
			wire = append(wire, b)
		}
	}
}

func parseHexByte(s string) (byte, error) {
	if len(s) != 2 {
		return 0, errors.New("rsp: malformed checksum")
	}
	var v byte
	for _, c := range []byte(s) {
		var d byte
		switch {
		case c >= '0' && c <= '9':
			d = c - '0'
		case c >= 'a' && c <= 'f':
			d = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			d = c - 'A' + 10
		default:
			return 0, errors.New("rsp: malformed checksum digit")
		}
		v = v<<4 | d
	}
	return v, nil
}

// WritePacket frames payload and writes it. In ack mode it blocks reading
// the peer's ack byte, retransmitting on '-' until '+' is seen; in noack
// mode it writes once and returns.
func (c *Codec) WritePacket(payload []byte) error {
	framed := EncodePacket(payload)
	for {
		if _, err := c.w.Write(framed); err != nil {
			return err
		}
		if c.noAck {
			return nil
		}
		b, err := c.r.ReadByte()
		if err != nil {
			return err
		}
		switch b {
		case ackByte:
			return nil
		case nackByte:
			continue
		default:
			// Unexpected byte where an ack was expected; resend defensively.
			continue
		}
	}
}

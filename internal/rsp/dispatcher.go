package rsp

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/tracereplay/rspreplay/internal/breakpoint"
	"github.com/tracereplay/rspreplay/internal/cpu"
	"github.com/tracereplay/rspreplay/internal/runctl"
	"github.com/tracereplay/rspreplay/internal/trace"
)

// featureAdvert is the qSupported reply: PacketSize=4000 per spec §6, plus
// the reverse-execution and noack capabilities this server actually
// implements.
const featureAdvert = "PacketSize=4000;ReverseStep+;ReverseContinue+;QStartNoAckMode+;qXfer:features:read+"

// Response is what Dispatch hands back to the connection loop: the reply
// payload to frame and send, plus any protocol-level side effect the codec
// needs to apply after sending it.
type Response struct {
	Payload    string
	EnterNoAck bool
	CloseAfter bool
}

// Dispatcher maps parsed RSP packets onto CPU-state, breakpoint-table, and
// run-controller operations, and formats the replies (spec §4.F).
type Dispatcher struct {
	state *cpu.State
	bps   *breakpoint.Table
	ctrl  *runctl.Controller
	check runctl.InterruptCheck
}

// NewDispatcher builds a Dispatcher over state/bps/ctrl. check is polled
// during continue motions to detect a mid-run interrupt (0x03); it may be
// nil, in which case continue motions cannot be interrupted.
func NewDispatcher(state *cpu.State, bps *breakpoint.Table, ctrl *runctl.Controller, check runctl.InterruptCheck) *Dispatcher {
	return &Dispatcher{state: state, bps: bps, ctrl: ctrl, check: check}
}

// Dispatch handles one decoded packet payload and returns the reply.
func (d *Dispatcher) Dispatch(packet string) Response {
	switch {
	case packet == "?":
		return Response{Payload: "S05"}

	case packet == "g":
		return Response{Payload: d.readAllRegisters()}

	case strings.HasPrefix(packet, "G"):
		d.writeAllRegisters(packet[1:])
		return Response{Payload: "OK"}

	case strings.HasPrefix(packet, "p"):
		return d.handleReadReg(packet[1:])

	case strings.HasPrefix(packet, "P"):
		return d.handleWriteReg(packet[1:])

	case strings.HasPrefix(packet, "m"):
		return d.handleReadMem(packet[1:])

	case strings.HasPrefix(packet, "M"):
		return d.handleWriteMem(packet[1:])

	case strings.HasPrefix(packet, "Z"):
		return d.handleBreakpoint(packet, true)

	case strings.HasPrefix(packet, "z"):
		return d.handleBreakpoint(packet, false)

	case packet == "s", packet == "vCont;s",
		strings.HasPrefix(packet, "S"), strings.HasPrefix(packet, "vCont;S"):
		return d.motionReply(d.ctrl.StepForward())

	case packet == "c", packet == "vCont;c",
		strings.HasPrefix(packet, "C"), strings.HasPrefix(packet, "vCont;C"):
		return d.motionReply(d.ctrl.ContinueForward(d.check))

	case packet == "bs":
		return d.motionReply(d.ctrl.StepBackward())

	case packet == "bc":
		return d.motionReply(d.ctrl.ContinueBackward(d.check))

	case packet == "qSupported" || strings.HasPrefix(packet, "qSupported:"):
		return Response{Payload: featureAdvert}

	case packet == "QStartNoAckMode":
		return Response{Payload: "OK", EnterNoAck: true}

	case strings.HasPrefix(packet, "H"):
		return Response{Payload: "OK"}

	case packet == "qC":
		return Response{Payload: "QC1"}

	case packet == "qAttached":
		return Response{Payload: "1"}

	case packet == "qfThreadInfo":
		return Response{Payload: "m1"}

	case packet == "qsThreadInfo":
		return Response{Payload: "l"}

	case packet == "vMustReplyEmpty":
		return Response{Payload: ""}

	case packet == "vCont?":
		return Response{Payload: "vCont;c;C;s;S"}

	case strings.HasPrefix(packet, "qXfer:features:read:target.xml:"):
		return Response{Payload: d.handleTargetXML(packet)}

	default:
		// Unsupported/unknown command: empty reply per spec §4.F.
		return Response{Payload: ""}
	}
}

func (d *Dispatcher) motionReply(res runctl.Result) Response {
	if res.Reason == runctl.Fault {
		// A malformed trace event panicked mid-motion; the session's
		// cpu.State may now be left mid-delta, so refuse further commands
		// rather than keep dispatching against it.
		return Response{Payload: "E01", CloseAfter: true}
	}
	return Response{Payload: FormatMotionStopReply(res, d.state.Capability())}
}

func (d *Dispatcher) readAllRegisters() string {
	caps := d.state.Capability()
	var sb strings.Builder
	for id := trace.RegID(0); int(id) < caps.RegisterCount; id++ {
		width := caps.WidthBytes(id)
		if v, ok := d.state.ReadReg(id); ok {
			sb.WriteString(leHex(v, width))
		} else {
			sb.WriteString(strings.Repeat("xx", width))
		}
	}
	return sb.String()
}

func (d *Dispatcher) writeAllRegisters(payload string) {
	caps := d.state.Capability()
	pos := 0
	for id := trace.RegID(0); int(id) < caps.RegisterCount; id++ {
		width := caps.WidthBytes(id)
		nibbles := width * 2
		if pos+nibbles > len(payload) {
			return
		}
		chunk := payload[pos : pos+nibbles]
		pos += nibbles
		if strings.Contains(chunk, "xx") {
			continue
		}
		v, err := parseLEHex(chunk)
		if err != nil {
			continue
		}
		d.state.WriteReg(id, v)
	}
}

func (d *Dispatcher) handleReadReg(arg string) Response {
	n, err := strconv.ParseUint(arg, 16, 32)
	if err != nil {
		return Response{Payload: ""}
	}
	id := trace.RegID(n)
	width := d.state.Capability().WidthBytes(id)
	if v, ok := d.state.ReadReg(id); ok {
		return Response{Payload: leHex(v, width)}
	}
	return Response{Payload: strings.Repeat("xx", width)}
}

func (d *Dispatcher) handleWriteReg(arg string) Response {
	parts := strings.SplitN(arg, "=", 2)
	if len(parts) != 2 {
		return Response{Payload: "E01"}
	}
	n, err := strconv.ParseUint(parts[0], 16, 32)
	if err != nil {
		return Response{Payload: "E01"}
	}
	v, err := parseLEHex(parts[1])
	if err != nil {
		return Response{Payload: "E01"}
	}
	d.state.WriteReg(trace.RegID(n), v)
	return Response{Payload: "OK"}
}

func (d *Dispatcher) handleReadMem(arg string) Response {
	var addr, length uint64
	if _, err := fmt.Sscanf(arg, "%x,%x", &addr, &length); err != nil {
		return Response{Payload: "E01"}
	}
	bytes := d.state.ReadMem(addr, int(length))
	anyValid := false
	var sb strings.Builder
	for _, b := range bytes {
		if b.Valid {
			anyValid = true
			sb.WriteString(fmt.Sprintf("%02x", b.Value))
		} else {
			sb.WriteString("xx")
		}
	}
	if !anyValid && length > 0 {
		return Response{Payload: "E14"}
	}
	return Response{Payload: sb.String()}
}

func (d *Dispatcher) handleWriteMem(arg string) Response {
	colon := strings.IndexByte(arg, ':')
	if colon < 0 {
		return Response{Payload: "E01"}
	}
	head := arg[:colon]
	hexData := arg[colon+1:]

	var addr, length uint64
	if _, err := fmt.Sscanf(head, "%x,%x", &addr, &length); err != nil {
		return Response{Payload: "E01"}
	}
	data, err := hex.DecodeString(hexData)
	if err != nil || uint64(len(data)) != length {
		return Response{Payload: "E01"}
	}
	d.state.WriteMem(addr, data)
	return Response{Payload: "OK"}
}

func (d *Dispatcher) handleBreakpoint(packet string, insert bool) Response {
	if len(packet) < 2 {
		return Response{Payload: ""}
	}
	typeDigit := packet[1]
	if typeDigit != '0' && typeDigit != '1' {
		// Z2-Z4/z2-z4: watch points are unsupported.
		return Response{Payload: ""}
	}
	rest := packet[2:]
	rest = strings.TrimPrefix(rest, ",")
	var addr, length uint64
	if _, err := fmt.Sscanf(rest, "%x,%x", &addr, &length); err != nil {
		return Response{Payload: "E01"}
	}
	kind := breakpoint.Software
	if typeDigit == '1' {
		kind = breakpoint.Hardware
	}
	if insert {
		d.bps.Insert(breakpoint.Breakpoint{Addr: addr, Kind: kind, Length: int(length)})
	} else {
		d.bps.Remove(addr, kind)
	}
	return Response{Payload: "OK"}
}

func (d *Dispatcher) handleTargetXML(packet string) string {
	xml := d.state.Capability().TargetXML
	if xml == "" {
		return ""
	}
	tail := strings.TrimPrefix(packet, "qXfer:features:read:target.xml:")
	var offset, length uint64
	if _, err := fmt.Sscanf(tail, "%x,%x", &offset, &length); err != nil {
		return ""
	}
	if offset >= uint64(len(xml)) {
		return "l"
	}
	end := offset + length
	if end >= uint64(len(xml)) {
		end = uint64(len(xml))
		return "l" + xml[offset:end]
	}
	return "m" + xml[offset:end]
}

func leHex(v uint64, widthBytes int) string {
	buf := make([]byte, widthBytes)
	for i := 0; i < widthBytes; i++ {
		buf[i] = byte(v)
		v >>= 8
	}
	return hex.EncodeToString(buf)
}

func parseLEHex(s string) (uint64, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := len(data) - 1; i >= 0; i-- {
		v = v<<8 | uint64(data[i])
	}
	return v, nil
}

package rsp

import (
	"strings"

	"github.com/tracereplay/rspreplay/internal/breakpoint"
	"github.com/tracereplay/rspreplay/internal/cpu"
	"github.com/tracereplay/rspreplay/internal/runctl"
)

// sigTrap and sigInt are the RSP signal numbers used in stop replies:
// SIGTRAP (5) for every motion-induced stop, SIGINT (2) for a debugger
// interrupt (spec §4.D, §4.F).
const (
	sigTrap = 5
	sigInt  = 2
)

// FormatMotionStopReply turns a runctl.Result into the RSP stop-reply
// payload (without framing) sent after s/c/bs/bc.
func FormatMotionStopReply(res runctl.Result, caps cpu.Capability) string {
	if res.Reason == runctl.Interrupted {
		return "T" + hex2(sigInt)
	}

	var sb strings.Builder
	sb.WriteString("T")
	sb.WriteString(hex2(sigTrap))
	sb.WriteString("thread:1;")

	switch res.Reason {
	case runctl.Breakpoint:
		if res.BPKind == breakpoint.Software {
			sb.WriteString("swbreak:;")
		} else {
			sb.WriteString("hwbreak:;")
		}
		if res.PCValid {
			sb.WriteString(hex2(int(caps.PCRegisterID)))
			sb.WriteString(":")
			sb.WriteString(leHex(res.PC, caps.WidthBytes(caps.PCRegisterID)))
			sb.WriteString(";")
		}
	case runctl.TraceEnd:
		sb.WriteString("reason:trace-end;")
	case runctl.TraceStart:
		sb.WriteString("reason:trace-start;")
	case runctl.StepComplete:
		// No additional key/value pairs required for an ordinary step.
	}

	return sb.String()
}

func hex2(v int) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[(v>>4)&0xf], digits[v&0xf]})
}

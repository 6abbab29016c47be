package statusapi

import (
	"encoding/json"
	"net/http"

	"github.com/tracereplay/rspreplay/internal/session"
)

// writeError writes an HTTP error response with a JSON body containing an
// "error" field.
func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Server holds the dependencies needed by the status API handlers.
type Server struct {
	tracker *session.Tracker
}

// NewServer creates a Server reporting on tracker's currently active
// session.
func NewServer(tracker *session.Tracker) *Server {
	return &Server{tracker: tracker}
}

// handleHealthz responds to GET /healthz with HTTP 200 so orchestrators and
// local tooling can verify the process is up, independent of whether a
// debugger is currently attached.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// sessionView is the JSON shape returned by GET /debug/session.
type sessionView struct {
	SessionID   string `json:"session_id"`
	Cursor      int    `json:"cursor"`
	TraceLen    int    `json:"trace_len"`
	PC          string `json:"pc,omitempty"`
	AtStart     bool   `json:"at_start"`
	AtEnd       bool   `json:"at_end"`
	Breakpoints int    `json:"breakpoints"`
}

// handleDebugSession responds to GET /debug/session with a snapshot of the
// currently connected debugger's replay position, or HTTP 404 when no
// debugger is attached.
func (s *Server) handleDebugSession(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.tracker.Current()
	if !ok {
		writeError(w, http.StatusNotFound, "no debugger session is currently connected")
		return
	}

	view := sessionView{
		SessionID:   snap.SessionID,
		Cursor:      snap.Cursor,
		TraceLen:    snap.TraceLen,
		AtStart:     snap.AtStart,
		AtEnd:       snap.AtEnd,
		Breakpoints: snap.Breakpoints,
	}
	if snap.PCValid {
		view.PC = formatHex(snap.PC)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(view)
}

func formatHex(v uint64) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0x0"
	}
	var buf [16]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return "0x" + string(buf[i:])
}

// Package statusapi exposes a small read-only HTTP surface alongside the RSP
// socket: a liveness probe and a snapshot of the active session's replay
// position. It is not part of the RSP wire protocol and carries no
// authentication, since it exists for local operator/CI visibility rather
// than as a debugger-facing interface.
package statusapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter returns a configured chi.Router for the status API.
//
// Route layout:
//
//	GET /healthz        – liveness probe
//	GET /debug/session  – current session snapshot (404 if none connected)
func NewRouter(srv *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", srv.handleHealthz)
	r.Get("/debug/session", srv.handleDebugSession)

	return r
}

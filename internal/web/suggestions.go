package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"calibtrack/internal/model"
)

// handleSuggestions lists pending recalibrations, most urgent first.
//
// GET /api/suggestions?limit=10
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	out := s.deps.Workflow.Pending(s.deps.Catalog.Tools())
	if limit := parseIntDefault(r.URL.Query().Get("limit"), 0); limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []model.Suggestion{}
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) tool(w http.ResponseWriter, r *http.Request) (model.Tool, bool) {
	serial := chi.URLParam(r, "serial")
	tool, ok := s.deps.Catalog.Get(serial)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown tool "+serial)
	}
	return tool, ok
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	tool, ok := s.tool(w, r)
	if !ok {
		return
	}
	ev, err := s.deps.Workflow.Accept(r.Context(), tool)
	if err != nil {
		writeErr(w, err, http.StatusBadGateway)
		return
	}
	writeData(w, http.StatusCreated, ev)
}

func (s *Server) handleDecline(w http.ResponseWriter, r *http.Request) {
	tool, ok := s.tool(w, r)
	if !ok {
		return
	}
	if err := s.deps.Workflow.Decline(r.Context(), tool); err != nil {
		writeErr(w, err, http.StatusBadGateway)
		return
	}
	writeData(w, http.StatusOK, s.deps.Workflow.Suggest(tool))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")
	if err := s.deps.Workflow.Reset(r.Context(), serial); err != nil {
		writeErr(w, err, http.StatusBadGateway)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"toolSerialId": serial, "state": s.deps.Workflow.State(serial)})
}

package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"calibtrack/internal/ics"
	"calibtrack/internal/model"
	"calibtrack/internal/risk"
)

type summaryResponse struct {
	risk.Summary
	Source      string     `json:"source,omitempty"`
	RefreshedAt *time.Time `json:"refreshedAt,omitempty"`
	RefreshErr  string     `json:"refreshError,omitempty"`
}

type scheduleResponse struct {
	Tool           model.Tool           `json:"tool"`
	Classification model.Classification `json:"classification"`
	Dates          []time.Time          `json:"dates"`
}

// handleTools lists every tool with its classification and workflow state.
func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	list := s.deps.Catalog.Tools()
	out := make([]model.Suggestion, 0, len(list))
	for _, t := range list {
		out = append(out, s.deps.Workflow.Suggest(t))
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleToolSummary(w http.ResponseWriter, _ *http.Request) {
	resp := summaryResponse{Summary: s.classifier.Summarize(s.deps.Catalog.Tools(), s.now())}
	refreshed, err := s.deps.Catalog.Status()
	if !refreshed.IsZero() {
		resp.RefreshedAt = &refreshed
	}
	if err != nil {
		resp.RefreshErr = err.Error()
	}
	writeData(w, http.StatusOK, resp)
}

func (s *Server) handleToolRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Catalog.Refresh(r.Context()); err != nil {
		writeErr(w, err, http.StatusBadGateway)
		return
	}
	writeData(w, http.StatusOK, map[string]int{"count": len(s.deps.Catalog.Tools())})
}

// handleToolSchedule projects the next due dates of one tool.
//
// GET /api/tools/{serial}/schedule?months=24
func (s *Server) handleToolSchedule(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")
	tool, ok := s.deps.Catalog.Get(serial)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown tool "+serial)
		return
	}
	months := parseIntDefault(r.URL.Query().Get("months"), 24)
	if months <= 0 || months > 120 {
		months = 24
	}

	now := s.now().In(s.loc)
	c := s.classifier.Classify(tool, now)
	dates, err := ics.ProjectSchedule(tool, c, now.AddDate(0, -c.IntervalMonths, 0), now.AddDate(0, months, 0))
	if err != nil {
		writeErr(w, err, http.StatusInternalServerError)
		return
	}
	if dates == nil {
		dates = []time.Time{}
	}
	writeData(w, http.StatusOK, scheduleResponse{Tool: tool, Classification: c, Dates: dates})
}

package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"calibtrack/internal/report"
)

// handleExport downloads a report.
//
// GET /api/export/{dataset}?format=json|csv|pdf|png
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	dataset, err := report.ParseDataset(chi.URLParam(r, "dataset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep := s.reports.Build(dataset, s.deps.Catalog.Tools(), s.now().In(s.loc))
	body, err := s.deps.Renderer.Render(r.Context(), rep, format)
	if err != nil {
		writeErr(w, fmt.Errorf("render %s report: %w", format, err), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, rep.Filename(), format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"calibtrack/internal/calendar"
	"calibtrack/internal/ics"
	appLog "calibtrack/internal/log"
	"calibtrack/internal/model"
	"calibtrack/internal/store"
)

var errBadWindow = errors.New("end is before start")

// maxICSBytes bounds an uploaded calendar.
const maxICSBytes = 5 << 20

type upsertStateRequest struct {
	ToolSerialID             string     `json:"toolSerialId" validate:"required,max=128"`
	IsAccepted               bool       `json:"isAccepted"`
	RiskLevel                int        `json:"riskLevel" validate:"min=0,max=3"`
	PredictedCalibrationDate *time.Time `json:"predictedCalibrationDate"`
}

type importResponse struct {
	Imported  int      `json:"imported"`
	Skipped   int      `json:"skipped"`
	Truncated []string `json:"truncated,omitempty"`
}

// handleGrid returns the month grid around date.
//
// GET /api/calendar/grid?date=2025-03-01
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	anchor, err := s.anchor(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, end := calendar.GridRange(anchor, s.weekStart)
	writeData(w, http.StatusOK, calendar.BuildGrid(anchor, s.weekStart, s.deps.Events.EventsInRange(start, end)))
}

func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	events, err := s.deps.Events.List(r.Context())
	if err != nil {
		writeErr(w, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calibtrack.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, ics.Export(events, s.now()))
}

// handleImportICS adds the events of an uploaded calendar. Recurring series
// are expanded from a year back to two years ahead; events whose ID already
// exists or whose tool is already scheduled are skipped.
func (s *Server) handleImportICS(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxICSBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	if len(body) > maxICSBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "calendar too large")
		return
	}

	parsed, err := ics.Parse(body, s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	now := s.now().In(s.loc)
	res, err := ics.Expand(parsed, ics.ExpandConfig{
		RangeStart: now.AddDate(-1, 0, 0),
		RangeEnd:   now.AddDate(2, 0, 0),
	})
	if err != nil {
		writeErr(w, err, http.StatusBadRequest)
		return
	}

	out := importResponse{Truncated: res.Truncated}
	for _, ev := range res.Events {
		err := s.deps.Events.Add(r.Context(), ev)
		switch {
		case err == nil:
			out.Imported++
		case errors.Is(err, store.ErrDuplicateID), errors.Is(err, store.ErrInvalidEvent), errors.Is(err, store.ErrToolScheduled):
			out.Skipped++
		default:
			writeErr(w, fmt.Errorf("import %s: %w", ev.ID, err), http.StatusInternalServerError)
			return
		}
	}
	appLog.Info("calendar imported", "imported", out.Imported, "skipped", out.Skipped)
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleListStates(w http.ResponseWriter, r *http.Request) {
	states, err := s.deps.States.List(r.Context())
	if err != nil {
		writeErr(w, err, http.StatusInternalServerError)
		return
	}
	if states == nil {
		states = []model.CalendarState{}
	}
	writeData(w, http.StatusOK, states)
}

// handleUpsertState writes a decision record directly and resyncs that
// tool's workflow state from it.
func (s *Server) handleUpsertState(w http.ResponseWriter, r *http.Request) {
	var req upsertStateRequest
	if err := s.decode(r, &req); err != nil {
		writeErr(w, err, http.StatusBadRequest)
		return
	}
	st := model.CalendarState{
		ToolSerialID: req.ToolSerialID,
		IsAccepted:   req.IsAccepted,
		RiskLevel:    req.RiskLevel,
		UpdatedAt:    s.now().UTC(),
	}
	if req.PredictedCalibrationDate != nil {
		st.PredictedCalibrationDate = *req.PredictedCalibrationDate
	}
	saved, err := s.deps.States.Upsert(r.Context(), st)
	if err != nil {
		writeErr(w, err, http.StatusBadGateway)
		return
	}
	if _, err := s.deps.Workflow.Sync(r.Context(), saved.ToolSerialID); err != nil {
		appLog.Error("workflow resync failed", err, "serial", saved.ToolSerialID)
	}
	writeData(w, http.StatusOK, saved)
}

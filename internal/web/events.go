package web

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"

	"calibtrack/internal/calendar"
	"calibtrack/internal/id"
	"calibtrack/internal/model"
)

type createEventRequest struct {
	ID           string      `json:"id" validate:"omitempty,max=128"`
	Title        string      `json:"title" validate:"required,max=200"`
	Color        model.Color `json:"color" validate:"omitempty,oneof=blue indigo pink red orange amber emerald"`
	Start        time.Time   `json:"start" validate:"required"`
	End          time.Time   `json:"end" validate:"required,gtefield=Start"`
	Description  string      `json:"description" validate:"max=2000"`
	ToolSerialID string      `json:"toolSerialId" validate:"max=128"`
}

type updateEventRequest struct {
	Title       *string      `json:"title" validate:"omitempty,min=1,max=200"`
	Color       *model.Color `json:"color" validate:"omitempty,oneof=blue indigo pink red orange amber emerald"`
	Start       *time.Time   `json:"start"`
	End         *time.Time   `json:"end"`
	Description *string      `json:"description" validate:"omitempty,max=2000"`
}

type eventsResponse struct {
	Start  time.Time             `json:"start"`
	End    time.Time             `json:"end"`
	Events []model.CalendarEvent `json:"events"`
}

// handleListEvents returns the events intersecting a window given either as
// start/end or as a view around a date.
//
// GET /api/events?start=2025-03-01&end=2025-04-01
// GET /api/events?view=week&date=2025-03-12
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	start, end, err := s.window(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	events := slices.Collect(s.deps.Events.EventsInRange(start, end))
	if events == nil {
		events = []model.CalendarEvent{}
	}
	writeData(w, http.StatusOK, eventsResponse{Start: start, End: end, Events: events})
}

func (s *Server) window(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	if q.Get("start") != "" || q.Get("end") != "" {
		start, err := parseTime(q.Get("start"), s.loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end, err := parseTime(q.Get("end"), s.loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, errBadWindow
		}
		return start, end, nil
	}

	view, err := calendar.ParseView(q.Get("view"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	anchor, err := s.anchor(q.Get("date"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, end := calendar.ViewRange(view, anchor, s.weekStart)
	return start, end, nil
}

// anchor parses date, defaulting to now in the configured zone.
func (s *Server) anchor(date string) (time.Time, error) {
	if date == "" {
		return s.now().In(s.loc), nil
	}
	t, err := parseTime(date, s.loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(s.loc), nil
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := s.decode(r, &req); err != nil {
		writeErr(w, err, http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		eid, err := id.Generate("evt")
		if err != nil {
			writeErr(w, err, http.StatusInternalServerError)
			return
		}
		req.ID = eid
	}
	ev := model.CalendarEvent{
		ID:           req.ID,
		Title:        req.Title,
		Color:        req.Color,
		Start:        req.Start,
		End:          req.End,
		Description:  req.Description,
		ToolSerialID: req.ToolSerialID,
	}
	if err := s.deps.Events.Add(r.Context(), ev); err != nil {
		writeErr(w, err, http.StatusInternalServerError)
		return
	}
	created, err := s.deps.Events.Get(r.Context(), ev.ID)
	if err != nil {
		writeErr(w, err, http.StatusInternalServerError)
		return
	}
	writeData(w, http.StatusCreated, created)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.deps.Events.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err, http.StatusInternalServerError)
		return
	}
	writeData(w, http.StatusOK, ev)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req updateEventRequest
	if err := s.decode(r, &req); err != nil {
		writeErr(w, err, http.StatusBadRequest)
		return
	}
	ev, err := s.deps.Events.Update(r.Context(), chi.URLParam(r, "id"), model.EventPatch{
		Title:       req.Title,
		Color:       req.Color,
		Start:       req.Start,
		End:         req.End,
		Description: req.Description,
	})
	if err != nil {
		writeErr(w, err, http.StatusInternalServerError)
		return
	}
	writeData(w, http.StatusOK, ev)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	eid := chi.URLParam(r, "id")
	if err := s.deps.Events.Remove(r.Context(), eid); err != nil {
		writeErr(w, err, http.StatusInternalServerError)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"id": eid})
}

// handleEventLink returns the "add to Google Calendar" URL of an event.
func (s *Server) handleEventLink(w http.ResponseWriter, r *http.Request) {
	ev, err := s.deps.Events.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err, http.StatusInternalServerError)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"url": calendar.GoogleLink(ev)})
}

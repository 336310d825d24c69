// Package web exposes the calibration tracker over an HTTP JSON API.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"calibtrack/internal/assistant"
	"calibtrack/internal/config"
	"calibtrack/internal/localcache"
	appLog "calibtrack/internal/log"
	"calibtrack/internal/model"
	"calibtrack/internal/report"
	"calibtrack/internal/risk"
	"calibtrack/internal/store"
	"calibtrack/internal/suggest"
	"calibtrack/internal/tools"
)

// Catalog is the live tool snapshot the API reads from.
type Catalog interface {
	Tools() []model.Tool
	Get(serial string) (model.Tool, bool)
	Refresh(ctx context.Context) error
	Status() (time.Time, error)
}

var _ Catalog = (*tools.Catalog)(nil)

// Renderer encodes reports for download.
type Renderer interface {
	Render(ctx context.Context, r report.Report, f report.Format) ([]byte, error)
}

// Deps are the collaborators behind the API.
type Deps struct {
	Catalog  Catalog
	Workflow *suggest.Workflow
	Events   store.EventStore
	States   store.CalendarStateStore
	Renderer Renderer
	Layout   *localcache.Store[localcache.Layout]
	Chat     *assistant.History
}

// Server provides the HTTP API.
type Server struct {
	cfg  *config.Config
	deps Deps

	loc        *time.Location
	weekStart  time.Weekday
	classifier risk.Classifier
	reports    report.Builder
	assistant  assistant.Assistant
	validate   *Validator
	limiter    *KeyedRateLimiter
	now        func() time.Time

	router chi.Router
}

// NewServer wires the routes. cfg must be normalized.
func NewServer(cfg *config.Config, deps Deps) *Server {
	classifier := risk.Classifier{DefaultInterval: cfg.DefaultIntervalMonths}
	s := &Server{
		cfg:        cfg,
		deps:       deps,
		loc:        cfg.Location(),
		weekStart:  cfg.FirstWeekday(),
		classifier: classifier,
		reports:    report.Builder{Classifier: classifier},
		assistant:  assistant.Assistant{Classifier: classifier},
		validate:   NewValidator(),
		now:        time.Now,
	}
	if cfg.RateLimit.RPS > 0 {
		s.limiter = NewKeyedRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases background resources.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	if s.cfg.BasicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		r.Use(s.basicAuth)
	}
	if s.limiter != nil {
		r.Use(s.rateLimit)
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/tools", func(r chi.Router) {
			r.Get("/", s.handleTools)
			r.Get("/summary", s.handleToolSummary)
			r.Post("/refresh", s.handleToolRefresh)
			r.Get("/{serial}/schedule", s.handleToolSchedule)
		})

		r.Route("/suggestions", func(r chi.Router) {
			r.Get("/", s.handleSuggestions)
			r.Post("/{serial}/accept", s.handleAccept)
			r.Post("/{serial}/decline", s.handleDecline)
			r.Post("/{serial}/reset", s.handleReset)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", s.handleListEvents)
			r.Post("/", s.handleCreateEvent)
			r.Get("/{id}", s.handleGetEvent)
			r.Patch("/{id}", s.handleUpdateEvent)
			r.Delete("/{id}", s.handleDeleteEvent)
			r.Get("/{id}/link", s.handleEventLink)
		})

		r.Get("/calendar", s.handleListStates)
		r.Post("/calendar", s.handleUpsertState)
		r.Get("/calendar/grid", s.handleGrid)
		r.Get("/calendar.ics", s.handleExportICS)
		r.Post("/calendar/import", s.handleImportICS)

		r.Get("/export/{dataset}", s.handleExport)

		r.Get("/dashboard/layout", s.handleGetLayout)
		r.Put("/dashboard/layout", s.handlePutLayout)

		r.Get("/chat", s.handleChatHistory)
		r.Post("/chat", s.handleChat)
		r.Delete("/chat", s.handleChatClear)

		r.Post("/auth/logout", s.handleLogout)

		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusNotFound, "not found")
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

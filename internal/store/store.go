// Package store defines the persistence interfaces for calendar events and
// the per-tool accept/decline decisions.
package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"calibtrack/internal/model"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateID  = errors.New("duplicate id")
	ErrInvalidEvent = errors.New("invalid event")

	// ErrToolScheduled means the tool serial is already linked to an event.
	ErrToolScheduled = errors.New("tool already has a calendar event")
)

// EventStore is the ordered collection of calendar events. A tool serial is
// linked to at most one event; Add reports ErrToolScheduled otherwise.
type EventStore interface {
	Add(ctx context.Context, ev model.CalendarEvent) error
	Update(ctx context.Context, id string, patch model.EventPatch) (model.CalendarEvent, error)
	Remove(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (model.CalendarEvent, error)
	List(ctx context.Context) ([]model.CalendarEvent, error)
	FindByTool(ctx context.Context, serial string) (model.CalendarEvent, bool, error)

	// EventsInRange yields, in insertion order, the events intersecting
	// [start, end). Each iteration reads a consistent snapshot.
	EventsInRange(start, end time.Time) iter.Seq[model.CalendarEvent]
}

// EventMirror persists event mutations. It is written before the in-memory
// collection changes.
type EventMirror interface {
	InsertEvent(ctx context.Context, ev model.CalendarEvent) error
	UpdateEvent(ctx context.Context, ev model.CalendarEvent) error
	DeleteEvent(ctx context.Context, id string) error
	LoadEvents(ctx context.Context) ([]model.CalendarEvent, error)
}

// CalendarStateStore keeps one accept/decline record per tool serial.
type CalendarStateStore interface {
	Upsert(ctx context.Context, st model.CalendarState) (model.CalendarState, error)
	Get(ctx context.Context, serial string) (model.CalendarState, error)
	List(ctx context.Context) ([]model.CalendarState, error)
	Delete(ctx context.Context, serial string) error
}

// ValidateEvent checks the invariants every stored event satisfies.
func ValidateEvent(ev model.CalendarEvent) error {
	switch {
	case ev.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidEvent)
	case ev.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidEvent)
	case ev.End.Before(ev.Start):
		return fmt.Errorf("%w: end is before start", ErrInvalidEvent)
	case ev.Color != "" && !ev.Color.Valid():
		return fmt.Errorf("%w: unknown color %q", ErrInvalidEvent, ev.Color)
	}
	return nil
}

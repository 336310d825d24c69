// Package memory holds the in-process store implementations.
package memory

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"calibtrack/internal/calendar"
	"calibtrack/internal/model"
	"calibtrack/internal/store"
)

// EventStore keeps events in insertion order. Writers are serialized; readers
// work on snapshots so iteration never blocks a writer for long.
type EventStore struct {
	mu     sync.RWMutex
	events []model.CalendarEvent
	index  map[string]int
	mirror store.EventMirror
}

var _ store.EventStore = (*EventStore)(nil)

// NewEventStore returns an empty store. mirror may be nil.
func NewEventStore(mirror store.EventMirror) *EventStore {
	return &EventStore{
		index:  make(map[string]int),
		mirror: mirror,
	}
}

// Load replaces the contents with the events held by the mirror.
func (s *EventStore) Load(ctx context.Context) (int, error) {
	if s.mirror == nil {
		return 0, nil
	}
	evs, err := s.mirror.LoadEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("load events: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = s.events[:0]
	clear(s.index)
	for _, ev := range evs {
		if _, dup := s.index[ev.ID]; dup {
			continue
		}
		s.index[ev.ID] = len(s.events)
		s.events = append(s.events, ev)
	}
	return len(s.events), nil
}

func (s *EventStore) Add(ctx context.Context, ev model.CalendarEvent) error {
	if ev.Color == "" {
		ev.Color = model.ColorBlue
	}
	if err := store.ValidateEvent(ev); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[ev.ID]; ok {
		return fmt.Errorf("event %s: %w", ev.ID, store.ErrDuplicateID)
	}
	if ev.ToolSerialID != "" {
		if linked, ok := s.linkedLocked(ev.ToolSerialID); ok {
			return fmt.Errorf("tool %s (event %s): %w", ev.ToolSerialID, linked.ID, store.ErrToolScheduled)
		}
	}
	if s.mirror != nil {
		if err := s.mirror.InsertEvent(ctx, ev); err != nil {
			return fmt.Errorf("persist event %s: %w", ev.ID, err)
		}
	}
	s.index[ev.ID] = len(s.events)
	s.events = append(s.events, ev)
	return nil
}

func (s *EventStore) Update(ctx context.Context, id string, patch model.EventPatch) (model.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return model.CalendarEvent{}, fmt.Errorf("event %s: %w", id, store.ErrNotFound)
	}
	updated := patch.Apply(s.events[i])
	if err := store.ValidateEvent(updated); err != nil {
		return model.CalendarEvent{}, err
	}
	if s.mirror != nil {
		if err := s.mirror.UpdateEvent(ctx, updated); err != nil {
			return model.CalendarEvent{}, fmt.Errorf("persist event %s: %w", id, err)
		}
	}
	s.events[i] = updated
	return updated, nil
}

func (s *EventStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("event %s: %w", id, store.ErrNotFound)
	}
	if s.mirror != nil {
		if err := s.mirror.DeleteEvent(ctx, id); err != nil {
			return fmt.Errorf("delete event %s: %w", id, err)
		}
	}
	s.events = slices.Delete(s.events, i, i+1)
	delete(s.index, id)
	for j := i; j < len(s.events); j++ {
		s.index[s.events[j].ID] = j
	}
	return nil
}

func (s *EventStore) Get(_ context.Context, id string) (model.CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return model.CalendarEvent{}, fmt.Errorf("event %s: %w", id, store.ErrNotFound)
	}
	return s.events[i], nil
}

func (s *EventStore) List(context.Context) ([]model.CalendarEvent, error) {
	return s.snapshot(), nil
}

// FindByTool returns the first event linked to serial.
func (s *EventStore) FindByTool(_ context.Context, serial string) (model.CalendarEvent, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.linkedLocked(serial)
	return ev, ok, nil
}

func (s *EventStore) linkedLocked(serial string) (model.CalendarEvent, bool) {
	for _, ev := range s.events {
		if ev.ToolSerialID == serial {
			return ev, true
		}
	}
	return model.CalendarEvent{}, false
}

func (s *EventStore) EventsInRange(start, end time.Time) iter.Seq[model.CalendarEvent] {
	return func(yield func(model.CalendarEvent) bool) {
		for _, ev := range s.snapshot() {
			if !calendar.Overlaps(ev, start, end) {
				continue
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// Len reports the number of stored events.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *EventStore) snapshot() []model.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

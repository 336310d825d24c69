package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"calibtrack/internal/model"
	"calibtrack/internal/store"
)

// CalendarStateStore is a map-backed store.CalendarStateStore.
type CalendarStateStore struct {
	mu   sync.RWMutex
	data map[string]model.CalendarState
	now  func() time.Time
}

var _ store.CalendarStateStore = (*CalendarStateStore)(nil)

func NewCalendarStateStore() *CalendarStateStore {
	return &CalendarStateStore{
		data: make(map[string]model.CalendarState),
		now:  time.Now,
	}
}

func (s *CalendarStateStore) Upsert(_ context.Context, st model.CalendarState) (model.CalendarState, error) {
	st.ToolSerialID = strings.TrimSpace(st.ToolSerialID)
	if st.ToolSerialID == "" {
		return model.CalendarState{}, fmt.Errorf("calendar state: tool serial id is required")
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[st.ToolSerialID] = st
	return st, nil
}

func (s *CalendarStateStore) Get(_ context.Context, serial string) (model.CalendarState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.data[serial]
	if !ok {
		return model.CalendarState{}, fmt.Errorf("calendar state %s: %w", serial, store.ErrNotFound)
	}
	return st, nil
}

// List returns every record ordered by serial.
func (s *CalendarStateStore) List(context.Context) ([]model.CalendarState, error) {
	s.mu.RLock()
	out := make([]model.CalendarState, 0, len(s.data))
	for _, st := range s.data {
		out = append(out, st)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b model.CalendarState) int {
		return strings.Compare(a.ToolSerialID, b.ToolSerialID)
	})
	return out, nil
}

func (s *CalendarStateStore) Delete(_ context.Context, serial string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[serial]; !ok {
		return fmt.Errorf("calendar state %s: %w", serial, store.ErrNotFound)
	}
	delete(s.data, serial)
	return nil
}

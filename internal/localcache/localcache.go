// Package localcache persists small pieces of UI state (chat history,
// dashboard layout) as JSON files keyed by fixed names.
package localcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"calibtrack/internal/fileutil"
	appLog "calibtrack/internal/log"
)

// Well-known keys.
const (
	KeyChatHistory     = "chat-history"
	KeyDashboardLayout = "dashboard-layout"
)

var validKey = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Store loads and saves one value of type T. A missing or unreadable file
// yields the fallback; Load never fails.
type Store[T any] struct {
	path     string
	fallback func() T

	mu sync.Mutex
}

// New returns the store for key under dir. fallback builds the value used
// when nothing valid is stored.
func New[T any](dir, key string, fallback func() T) (*Store[T], error) {
	if !validKey.MatchString(key) {
		return nil, fmt.Errorf("localcache: invalid key %q", key)
	}
	if fallback == nil {
		fallback = func() T {
			var zero T
			return zero
		}
	}
	return &Store[T]{path: filepath.Join(dir, key+".json"), fallback: fallback}, nil
}

// Load returns the stored value or the fallback.
func (s *Store[T]) Load() T {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			appLog.Debug("localcache read failed", "path", s.path, "err", err)
		}
		return s.fallback()
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		appLog.Debug("localcache discarded unparsable value", "path", s.path, "err", err)
		return s.fallback()
	}
	return v
}

// Save replaces the stored value.
func (s *Store[T]) Save(v T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("localcache encode: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fileutil.WriteAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("localcache save: %w", err)
	}
	return nil
}

// Update loads, applies fn and saves under one lock.
func (s *Store[T]) Update(fn func(T) T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.fallback()
	if data, err := os.ReadFile(s.path); err == nil {
		var v T
		if json.Unmarshal(data, &v) == nil {
			cur = v
		}
	}
	next := fn(cur)
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return cur, fmt.Errorf("localcache encode: %w", err)
	}
	if err := fileutil.WriteAtomic(s.path, data, 0o600); err != nil {
		return cur, fmt.Errorf("localcache save: %w", err)
	}
	return next, nil
}

// Clear removes the stored value so Load returns the fallback again.
func (s *Store[T]) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

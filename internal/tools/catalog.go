package tools

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	appLog "calibtrack/internal/log"
	"calibtrack/internal/model"
)

// Catalog caches the last good inventory snapshot from a Source. A failed
// refresh keeps the previous snapshot.
type Catalog struct {
	src  Source
	sink Sink

	mu        sync.RWMutex
	tools     []model.Tool
	bySerial  map[string]int
	refreshed time.Time
	lastErr   error
}

// NewCatalog wraps src. sink, when non-nil, receives every fresh snapshot.
func NewCatalog(src Source, sink Sink) *Catalog {
	return &Catalog{src: src, sink: sink, bySerial: map[string]int{}}
}

// Refresh reloads the snapshot from the source.
func (c *Catalog) Refresh(ctx context.Context) error {
	list, err := c.src.List(ctx)
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return fmt.Errorf("refresh tools from %s: %w", c.src.Name(), err)
	}

	index := make(map[string]int, len(list))
	kept := list[:0:0]
	for _, t := range list {
		if t.SerialID == "" {
			continue
		}
		if _, dup := index[t.SerialID]; dup {
			continue
		}
		index[t.SerialID] = len(kept)
		kept = append(kept, t)
	}

	if c.sink != nil {
		if err := c.sink.ReplaceAll(ctx, kept); err != nil {
			appLog.Error("tools import failed", err, "count", len(kept))
		}
	}

	c.mu.Lock()
	c.tools = kept
	c.bySerial = index
	c.refreshed = time.Now()
	c.lastErr = nil
	c.mu.Unlock()

	appLog.Info("tools refreshed", "source", c.src.Name(), "count", len(kept))
	return nil
}

// Tools returns a copy of the current snapshot.
func (c *Catalog) Tools() []model.Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.tools)
}

// Get looks a tool up by serial.
func (c *Catalog) Get(serial string) (model.Tool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.bySerial[serial]
	if !ok {
		return model.Tool{}, false
	}
	return c.tools[i], true
}

// Status reports when the snapshot was last refreshed and the error of the
// most recent failed attempt, if any.
func (c *Catalog) Status() (time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshed, c.lastErr
}

// Name is the name of the underlying source.
func (c *Catalog) Name() string { return c.src.Name() }

// List makes the catalog itself a Source over its snapshot.
func (c *Catalog) List(context.Context) ([]model.Tool, error) {
	return c.Tools(), nil
}

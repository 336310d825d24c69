// Package tools reads the tool inventory from its configured source and keeps
// a cached snapshot for the rest of the service.
package tools

import (
	"context"

	"calibtrack/internal/model"
)

// Source yields the current tool inventory.
type Source interface {
	Name() string
	List(ctx context.Context) ([]model.Tool, error)
}

// Sink receives a full copy of the inventory, e.g. for an import into the
// database.
type Sink interface {
	ReplaceAll(ctx context.Context, tools []model.Tool) error
}

// Static is a fixed in-memory Source.
type Static []model.Tool

func (s Static) Name() string { return "static" }

func (s Static) List(context.Context) ([]model.Tool, error) {
	out := make([]model.Tool, len(s))
	copy(out, s)
	return out, nil
}

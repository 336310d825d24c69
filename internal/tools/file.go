package tools

import (
	"context"
	"fmt"
	"os"
	"time"

	"calibtrack/internal/model"
)

// FileSource reads the inventory from a local JSON file on every List.
type FileSource struct {
	Path string
	Loc  *time.Location
}

func (s FileSource) Name() string { return "file " + s.Path }

func (s FileSource) List(context.Context) ([]model.Tool, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read tools file: %w", err)
	}
	recs, err := DecodeRecords(data)
	if err != nil {
		return nil, err
	}
	return Normalize(recs, s.Loc), nil
}

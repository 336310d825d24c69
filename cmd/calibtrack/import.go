package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"calibtrack/internal/ics"
	appLog "calibtrack/internal/log"
	"calibtrack/internal/store"
)

// importCalendar adds the events of an .ics file. Existing IDs and events for
// tools that are already scheduled are skipped.
func importCalendar(ctx context.Context, events store.EventStore, path string, loc *time.Location) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	parsed, err := ics.Parse(body, loc)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	now := time.Now().In(loc)
	res, err := ics.Expand(parsed, ics.ExpandConfig{
		RangeStart: now.AddDate(-1, 0, 0),
		RangeEnd:   now.AddDate(2, 0, 0),
	})
	if err != nil {
		return err
	}

	var added, skipped int
	for _, ev := range res.Events {
		switch err := events.Add(ctx, ev); {
		case err == nil:
			added++
		case errors.Is(err, store.ErrDuplicateID), errors.Is(err, store.ErrInvalidEvent), errors.Is(err, store.ErrToolScheduled):
			skipped++
		default:
			return err
		}
	}
	appLog.Info("calendar import finished", "path", path, "added", added, "skipped", skipped, "truncated", len(res.Truncated))
	return nil
}

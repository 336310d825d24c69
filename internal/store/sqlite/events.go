package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	dbpkg "calibtrack/internal/db"
	"calibtrack/internal/model"
	"calibtrack/internal/store"
)

// EventMirror persists calendar events for the in-memory store.
type EventMirror struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

var _ store.EventMirror = (*EventMirror)(nil)

func NewEventMirror(db *sql.DB, writer *dbpkg.Worker) *EventMirror {
	return &EventMirror{db: db, writer: writer}
}

func (m *EventMirror) InsertEvent(ctx context.Context, ev model.CalendarEvent) error {
	return m.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO calendar_events(id, title, color, start_ms, end_ms, description, tool_serial_id)
VALUES (?, ?, ?, ?, ?, ?, ?);
`, ev.ID, ev.Title, string(ev.Color), toMillis(ev.Start), toMillis(ev.End), ev.Description, ev.ToolSerialID); err != nil {
			return fmt.Errorf("InsertEvent: %w", err)
		}
		return nil
	})
}

func (m *EventMirror) UpdateEvent(ctx context.Context, ev model.CalendarEvent) error {
	return m.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE calendar_events
SET title = ?, color = ?, start_ms = ?, end_ms = ?, description = ?, tool_serial_id = ?
WHERE id = ?;
`, ev.Title, string(ev.Color), toMillis(ev.Start), toMillis(ev.End), ev.Description, ev.ToolSerialID, ev.ID)
		if err != nil {
			return fmt.Errorf("UpdateEvent: %w", err)
		}
		return requireRow(res, "event "+ev.ID)
	})
}

func (m *EventMirror) DeleteEvent(ctx context.Context, id string) error {
	return m.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM calendar_events WHERE id = ?;`, id)
		if err != nil {
			return fmt.Errorf("DeleteEvent: %w", err)
		}
		return requireRow(res, "event "+id)
	})
}

// LoadEvents returns every event in insertion order.
func (m *EventMirror) LoadEvents(ctx context.Context) ([]model.CalendarEvent, error) {
	rows, err := m.db.QueryContext(ctx, `
SELECT id, title, color, start_ms, end_ms, description, tool_serial_id
FROM calendar_events
ORDER BY seq;
`)
	if err != nil {
		return nil, fmt.Errorf("LoadEvents query: %w", err)
	}
	defer rows.Close()

	var out []model.CalendarEvent
	for rows.Next() {
		var (
			ev         model.CalendarEvent
			color      string
			start, end int64
		)
		if err := rows.Scan(&ev.ID, &ev.Title, &color, &start, &end, &ev.Description, &ev.ToolSerialID); err != nil {
			return nil, fmt.Errorf("LoadEvents scan: %w", err)
		}
		ev.Color = model.Color(color)
		ev.Start = fromMillis(start)
		ev.End = fromMillis(end)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("LoadEvents rows: %w", err)
	}
	return out, nil
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return nil
}

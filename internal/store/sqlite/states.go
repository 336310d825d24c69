package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	dbpkg "calibtrack/internal/db"
	"calibtrack/internal/model"
	"calibtrack/internal/store"
)

// CalendarStateStore keeps the accept/decline records in calendar_states.
type CalendarStateStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
	now    func() time.Time
}

var _ store.CalendarStateStore = (*CalendarStateStore)(nil)

func NewCalendarStateStore(db *sql.DB, writer *dbpkg.Worker) *CalendarStateStore {
	return &CalendarStateStore{db: db, writer: writer, now: time.Now}
}

// Upsert inserts or replaces the record of st.ToolSerialID.
func (s *CalendarStateStore) Upsert(ctx context.Context, st model.CalendarState) (model.CalendarState, error) {
	st.ToolSerialID = strings.TrimSpace(st.ToolSerialID)
	if st.ToolSerialID == "" {
		return model.CalendarState{}, errors.New("calendar state: tool serial id is required")
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = s.now().UTC()
	}

	var predicted sql.NullInt64
	if !st.PredictedCalibrationDate.IsZero() {
		predicted = sql.NullInt64{Int64: toMillis(st.PredictedCalibrationDate), Valid: true}
	}

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO calendar_states(tool_serial_id, is_accepted, risk_level, predicted_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(tool_serial_id) DO UPDATE SET
  is_accepted   = excluded.is_accepted,
  risk_level    = excluded.risk_level,
  predicted_ms  = excluded.predicted_ms,
  updated_at_ms = excluded.updated_at_ms;
`, st.ToolSerialID, st.IsAccepted, st.RiskLevel, predicted, toMillis(st.UpdatedAt)); err != nil {
			return fmt.Errorf("Upsert calendar state: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.CalendarState{}, err
	}
	return st, nil
}

func (s *CalendarStateStore) Get(ctx context.Context, serial string) (model.CalendarState, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT tool_serial_id, is_accepted, risk_level, predicted_ms, updated_at_ms
FROM calendar_states
WHERE tool_serial_id = ?;
`, serial)
	st, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CalendarState{}, fmt.Errorf("calendar state %s: %w", serial, store.ErrNotFound)
	}
	return st, err
}

func (s *CalendarStateStore) List(ctx context.Context) ([]model.CalendarState, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT tool_serial_id, is_accepted, risk_level, predicted_ms, updated_at_ms
FROM calendar_states
ORDER BY tool_serial_id;
`)
	if err != nil {
		return nil, fmt.Errorf("List calendar states: %w", err)
	}
	defer rows.Close()

	var out []model.CalendarState
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *CalendarStateStore) Delete(ctx context.Context, serial string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM calendar_states WHERE tool_serial_id = ?;`, serial)
		if err != nil {
			return fmt.Errorf("Delete calendar state: %w", err)
		}
		return requireRow(res, "calendar state "+serial)
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanState(sc scanner) (model.CalendarState, error) {
	var (
		st        model.CalendarState
		accepted  bool
		predicted sql.NullInt64
		updated   int64
	)
	if err := sc.Scan(&st.ToolSerialID, &accepted, &st.RiskLevel, &predicted, &updated); err != nil {
		return model.CalendarState{}, err
	}
	st.IsAccepted = accepted
	if predicted.Valid {
		st.PredictedCalibrationDate = fromMillis(predicted.Int64)
	}
	st.UpdatedAt = fromMillis(updated)
	return st, nil
}

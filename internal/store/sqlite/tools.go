package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "calibtrack/internal/db"
	"calibtrack/internal/model"
)

// ToolStore holds an imported copy of the tool inventory. It satisfies
// tools.Source.
type ToolStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewToolStore(db *sql.DB, writer *dbpkg.Worker) *ToolStore {
	return &ToolStore{db: db, writer: writer}
}

// Name identifies the source in logs.
func (s *ToolStore) Name() string { return "sqlite" }

// List returns the tools ordered by serial.
func (s *ToolStore) List(ctx context.Context) ([]model.Tool, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT serial_id, division, brand, description, model_part_no, calibrator, pic,
       last_calibration_ms, calibration_due_ms, interval_months, remaining_months, in_use
FROM tools
ORDER BY serial_id;
`)
	if err != nil {
		return nil, fmt.Errorf("List tools: %w", err)
	}
	defer rows.Close()

	var out []model.Tool
	for rows.Next() {
		var (
			t                model.Tool
			last, due        sql.NullInt64
			interval, remain sql.NullInt64
			inUse            sql.NullInt64
		)
		if err := rows.Scan(&t.SerialID, &t.Division, &t.Brand, &t.Description, &t.ModelPartNo,
			&t.Calibrator, &t.PIC, &last, &due, &interval, &remain, &inUse); err != nil {
			return nil, fmt.Errorf("List tools scan: %w", err)
		}
		t.LastCalibration = timePtr(last)
		t.CalibrationDue = timePtr(due)
		t.IntervalMonths = intPtr(interval)
		t.RemainingMonths = intPtr(remain)
		t.InUse = boolPtr(inUse)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ReplaceAll swaps the stored inventory for tools in one transaction.
func (s *ToolStore) ReplaceAll(ctx context.Context, tools []model.Tool) error {
	now := time.Now().UTC().UnixMilli()
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tools;`); err != nil {
			return fmt.Errorf("ReplaceAll clear: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO tools(
  serial_id, division, brand, description, model_part_no, calibrator, pic,
  last_calibration_ms, calibration_due_ms, interval_months, remaining_months, in_use,
  updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(serial_id) DO NOTHING;
`)
		if err != nil {
			return fmt.Errorf("ReplaceAll prepare: %w", err)
		}
		defer stmt.Close()

		for _, t := range tools {
			if _, err := stmt.ExecContext(ctx,
				t.SerialID, t.Division, t.Brand, t.Description, t.ModelPartNo, t.Calibrator, t.PIC,
				nullMillis(t.LastCalibration), nullMillis(t.CalibrationDue),
				nullInt(t.IntervalMonths), nullInt(t.RemainingMonths), nullBool(t.InUse),
				now,
			); err != nil {
				return fmt.Errorf("ReplaceAll insert %s: %w", t.SerialID, err)
			}
		}
		return nil
	})
}

// Package notify publishes suggestion decisions to interested parties.
package notify

import (
	"context"
	"errors"

	appLog "calibtrack/internal/log"
	"calibtrack/internal/suggest"
)

// Log writes every decision to the application log.
type Log struct{}

func (Log) Notify(_ context.Context, d suggest.Decision) error {
	appLog.Info("calibration decision",
		"serial", d.ToolSerialID,
		"state", d.State,
		"risk", d.RiskLevel,
		"date", d.Date.Format("2006-01-02"),
		"event", d.EventID,
	)
	return nil
}

// Multi fans a decision out to several notifiers. Every notifier runs even
// when an earlier one fails.
type Multi []suggest.Notifier

func (m Multi) Notify(ctx context.Context, d suggest.Decision) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

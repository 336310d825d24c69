// Package id generates identifiers for calendar events and other records.
package id

import (
	"fmt"
	"strconv"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generate creates a prefixed unique ID using NanoID, e.g. "evt-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// ForTool builds the ID of a calibration event: the tool serial plus the
// creation time in milliseconds. A tool suggested again after a decline
// therefore gets a distinct event identity.
func ForTool(serial string, at time.Time) string {
	return "cal-" + serial + "-" + strconv.FormatInt(at.UnixMilli(), 10)
}

package service

import (
	"errors"
	"strings"
	"time"
)

// capsuleDateLayouts are tried in order. Layouts without a zone are read as UTC.
//
// Browsers send unlockDate from <input type="date"> ("2026-12-31") and
// lockedDate from Date.toISOString() ("2026-01-05T10:11:12.345Z"); the
// datetime-local variants cover <input type="datetime-local">.
var capsuleDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

var errBadDate = errors.New("unrecognised date format")

// parseCapsuleDate parses unlockDate and lockedDate. Both fields go through
// the same rule.
func parseCapsuleDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range capsuleDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errBadDate
}

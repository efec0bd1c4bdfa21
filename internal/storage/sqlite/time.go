package sqlite

import (
	"database/sql"
	"time"
)

// Timestamps are stored as TEXT. Rows written by Go code carry RFC3339;
// rows defaulted by SQLite carry "2006-01-02 15:04:05".
const sqliteTimeLayout = "2006-01-02 15:04:05"

func parseTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, sqliteTimeLayout, "2006-01-02"} {
		if t, err := time.Parse(layout, s.String); err == nil {
			return &t
		}
	}
	return nil
}

func parseTimeOr(s sql.NullString, fallback time.Time) time.Time {
	if t := parseTime(s); t != nil {
		return *t
	}
	return fallback
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

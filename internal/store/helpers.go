package store

import (
	"database/sql"
	"fmt"
	"time"
)

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", value)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func timePtr(raw sql.NullString) *time.Time {
	if !raw.Valid {
		return nil
	}
	t, err := parseTimeString(raw.String)
	if err != nil {
		return nil
	}
	return &t
}

func floatPtr(raw sql.NullFloat64) *float64 {
	if !raw.Valid {
		return nil
	}
	v := raw.Float64
	return &v
}

func intPtr(raw sql.NullInt64) *int {
	if !raw.Valid {
		return nil
	}
	v := int(raw.Int64)
	return &v
}

type rowScanner interface{ Scan(dest ...any) error }

package database

import (
	"fmt"
	"time"
)

// TimestampLayout is how timestamps are written. It sorts lexically, so
// range comparisons work in SQL for both drivers.
const TimestampLayout = "2006-01-02 15:04:05"

// FormatTimestamp renders t in UTC for storage.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts whatever the driver hands back for a TIMESTAMP
// column: go-sqlite3 converts to time.Time, libsql returns text.
func ParseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseTimestampString(t)
	case []byte:
		return parseTimestampString(string(t))
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp value %T", v)
	}
}

func parseTimestampString(s string) (time.Time, error) {
	for _, layout := range []string{TimestampLayout, time.RFC3339Nano, "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

package helpers

import (
	"fmt"
	"time"
)

// The two time formats used across the replay engine. Every date or
// timestamp that crosses a boundary (params, wire payload, SQL query)
// goes through these layouts and nothing else.
const (
	DateLayout     = "20060102"            // yyyyMMdd
	DateTimeLayout = "2006-01-02 15:04:05" // yyyy-MM-dd HH:mm:ss
)

// FormatDate renders t as yyyyMMdd.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatDateTime renders t as yyyy-MM-dd HH:mm:ss (second precision).
func FormatDateTime(t time.Time) string {
	return t.Format(DateTimeLayout)
}

// ParseDate parses a yyyyMMdd date in the local timezone.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want yyyyMMdd): %w", s, err)
	}
	return t, nil
}

// ParseDateTime parses a yyyy-MM-dd HH:mm:ss timestamp in the local timezone.
func ParseDateTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateTimeLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q (want yyyy-MM-dd HH:mm:ss): %w", s, err)
	}
	return t, nil
}

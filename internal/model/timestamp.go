package model

import (
	"strings"
	"time"
)

// TimestampLayout is RFC 3339 with a fixed nine-digit fraction, so stored
// timestamps sort as text in time order.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// CompareTimestamps orders two stored RFC 3339 timestamps by time. Records
// written with a variable-width fraction compare correctly too. Values that
// do not parse fall back to text order.
func CompareTimestamps(a, b string) int {
	ta, errA := time.Parse(time.RFC3339Nano, a)
	tb, errB := time.Parse(time.RFC3339Nano, b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return ta.Compare(tb)
}

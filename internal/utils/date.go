// internal/utils/date.go
package utils

import (
	"time"
)

// FromUnix converts epoch seconds to a calendar time in UTC.
func FromUnix(seconds int64) time.Time {
	return time.Unix(seconds, 0).UTC()
}

func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}


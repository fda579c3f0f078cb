package util

import (
	"fmt"
	"time"
)

// FormatDuration renders a duration the way the reports show worked time:
// "7h 05m", "42m 10s" or "12s". Sub-minute precision only appears below one
// hour, where it is still meaningful.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %02dm", hours, minutes)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %02ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// ShortID returns the first 8 characters of a frame ID for display.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

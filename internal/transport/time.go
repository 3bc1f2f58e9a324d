package transport

import "time"

// timeUntilMs returns the milliseconds remaining until t, floored at 0.
func timeUntilMs(t time.Time) int64 {
	remaining := time.Until(t) / time.Millisecond
	if remaining < 0 {
		return 0
	}
	return int64(remaining)
}

package util

import "time"

// DailyAxis returns n consecutive calendar days ending on end's UTC date,
// oldest first, each at midnight UTC.
func DailyAxis(end time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	last := end.UTC().Truncate(24 * time.Hour)
	out := make([]time.Time, n)
	for i := 0; i < n; i++ {
		out[i] = last.AddDate(0, 0, i-(n-1))
	}
	return out
}

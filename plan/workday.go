package plan

import "time"

// IsWorkday reports whether t falls on a weekday. Display-only — mirrors
// the teacher's TimePoint.IsWorkday but never gates a core operation.
func IsWorkday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

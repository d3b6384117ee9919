/*
Package validate implements the Plan Validator (spec.md §4.5): pure
predicates over a Day Plan producing human-readable warnings. No I/O, no
mutation.
*/
package validate

import (
	"fmt"
	"sort"
	"time"

	"github.com/kvaranth/dayclock/plan"
)

const secondsPerDay = 86400

// Warnings returns an ordered list of human-readable issues with p: an
// over-budget warning (at most one), then a weekend warning (at most one,
// only when p has tasks and today is not a workday), then overlap
// warnings ordered by start time ascending, ties broken by insertion
// order.
func Warnings(p plan.DayPlan, today time.Time) []string {
	var warnings []string

	if total := p.TotalAllocated(); total > secondsPerDay {
		warnings = append(warnings, fmt.Sprintf(
			"planned tasks total %.1fh, more than a full day", float64(total)/3600))
	}

	if len(p.Tasks) > 0 && !plan.IsWorkday(today) {
		warnings = append(warnings, "this falls on a weekend")
	}

	warnings = append(warnings, overlapWarnings(p, today)...)
	return warnings
}

type scheduledTask struct {
	index int
	task  plan.Task
	start time.Time
	end   time.Time
}

func overlapWarnings(p plan.DayPlan, today time.Time) []string {
	var scheduled []scheduledTask
	for i, t := range p.Tasks {
		if t.Status.IsTerminal() || t.ScheduledTime == "" {
			continue
		}
		start, err := parseScheduledTime(t.ScheduledTime, today)
		if err != nil {
			continue
		}
		scheduled = append(scheduled, scheduledTask{
			index: i,
			task:  t,
			start: start,
			end:   start.Add(time.Duration(t.AllocatedSeconds) * time.Second),
		})
	}

	sort.SliceStable(scheduled, func(i, j int) bool {
		if scheduled[i].start.Equal(scheduled[j].start) {
			return scheduled[i].index < scheduled[j].index
		}
		return scheduled[i].start.Before(scheduled[j].start)
	})

	var warnings []string
	for i := 0; i < len(scheduled); i++ {
		for j := i + 1; j < len(scheduled); j++ {
			a, b := scheduled[i], scheduled[j]
			overlapStart := a.start
			if b.start.After(overlapStart) {
				overlapStart = b.start
			}
			overlapEnd := a.end
			if b.end.Before(overlapEnd) {
				overlapEnd = b.end
			}
			if delta := overlapEnd.Sub(overlapStart); delta > 0 {
				warnings = append(warnings, fmt.Sprintf(
					"%q and %q overlap by %d min", a.task.Name, b.task.Name, int(delta.Minutes())))
			}
		}
	}
	return warnings
}

func parseScheduledTime(hhmm string, today time.Time) (time.Time, error) {
	t, err := time.ParseInLocation("15:04", hhmm, today.Location())
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(today.Year(), today.Month(), today.Day(), t.Hour(), t.Minute(), 0, 0, today.Location()), nil
}

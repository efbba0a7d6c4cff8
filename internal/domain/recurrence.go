package domain

import (
	"errors"
	"time"
)

// MaterializeLookahead bounds how far into the future a recurring series may
// have instances generated. Occurrences past this window wait for a later run.
const MaterializeLookahead = 30 * 24 * time.Hour

var ErrUnsupportedPattern = errors.New("unsupported recurring pattern")

// NextOccurrence computes the next occurrence time of a recurring series.
// The base is the root's own scheduled start until instances exist, then the
// latest materialized instance's start. Instances must be ordered by
// scheduled time ascending.
func NextOccurrence(root Appointment, instances []Appointment) (time.Time, error) {
	base := root.ScheduledAt
	if len(instances) > 0 {
		base = instances[len(instances)-1].ScheduledAt
	}
	return advance(base, root.RecurringPattern)
}

// ShouldMaterializeNext decides whether the occurrence at next may be created
// now: it must fall within the look-ahead window, respect the series end date
// if one is set, and not duplicate an already-materialized start time. The
// duplicate guard makes the recurrence sweep safe to re-run every tick.
func ShouldMaterializeNext(root Appointment, instances []Appointment, next, now time.Time) bool {
	if next.After(now.Add(MaterializeLookahead)) {
		return false
	}
	if root.RecurringEndDate != nil && next.After(*root.RecurringEndDate) {
		return false
	}
	for _, inst := range instances {
		if inst.ScheduledAt.Equal(next) {
			return false
		}
	}
	return true
}

func advance(t time.Time, pattern RecurringPattern) (time.Time, error) {
	switch pattern {
	case PatternWeekly:
		return t.AddDate(0, 0, 7), nil
	case PatternBiweekly:
		return t.AddDate(0, 0, 14), nil
	case PatternMonthly:
		return addMonthClamped(t), nil
	default:
		return time.Time{}, ErrUnsupportedPattern
	}
}

// addMonthClamped advances t by one calendar month, clamping the day of month
// to the target month's last day. A series starting Jan 31 lands on Feb 28
// (Feb 29 in leap years) rather than normalizing into March.
func addMonthClamped(t time.Time) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+1, 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

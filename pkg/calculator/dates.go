package calculator

import "time"

// DateOf returns the calendar day t falls on, in t's own location, as
// midnight UTC. Every stored date goes through here so that two dates compare
// by (year, month, day) no matter which zone produced them.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddMonths returns the calendar date n months after start. The day is
// clamped to the end of a shorter target month, so Jan 31 + 1 is Feb 29 in a
// leap year rather than rolling into March.
func AddMonths(start time.Time, n int) time.Time {
	y, m, d := DateOf(start).Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(first); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

// IsPastDue reports whether the calendar day of now is strictly after dueDate.
func IsPastDue(dueDate, now time.Time) bool {
	return DaysOverdue(dueDate, now) > 0
}

// DaysOverdue counts whole calendar days between dueDate and now, never negative.
func DaysOverdue(dueDate, now time.Time) int {
	days := int(DateOf(now).Sub(DateOf(dueDate)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// MonthBounds returns [first day of now's month, first day of next month) on
// the same UTC-midnight footing as DateOf.
func MonthBounds(now time.Time) (time.Time, time.Time) {
	y, m, _ := now.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// InWindow applies the half-open convention used by every report: from is
// inclusive, to is exclusive.
func InWindow(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

package calendar

import "time"

// NextOccurrence returns the next date an event falls on.
//
// One-time events return origin unchanged, even when it is in the past; the
// caller shows them as overdue. Recurring events move origin's month and day
// into today's year (Feb 29 becomes Feb 28 in common years) and add a year
// when that date has already passed.
func NextOccurrence(origin time.Time, recurring bool, today time.Time) time.Time {
	origin = Day(origin)
	if !recurring {
		return origin
	}
	today = Day(today)

	next := withDay(today.Year(), origin.Month(), origin.Day())
	if next.Before(today) {
		next = withDay(today.Year()+1, origin.Month(), origin.Day())
	}
	return next
}

// DaysUntilOccurrence returns the number of days until the next occurrence;
// negative for overdue one-time events.
func DaysUntilOccurrence(origin time.Time, recurring bool, today time.Time) int {
	return DaysBetween(today, NextOccurrence(origin, recurring, today))
}

package calendar

import "time"

// NextPayday returns the effective payday for a salary paid on day-of-month
// day, as seen from today.
//
// The candidate is today's month with its day replaced by day (clamped to the
// month length); a candidate before today moves to the next month. A Saturday
// payday moves back two days and a Sunday payday moves forward one day. If the
// Saturday shift lands before today, this cycle's payday has passed and the
// following month is used.
func NextPayday(day int, today time.Time) time.Time {
	today = Day(today)
	y, m, _ := today.Date()

	for i := 0; i < 3; i++ {
		candidate := withDay(y, m, day)
		if candidate.Before(today) {
			y, m = nextMonth(y, m)
			continue
		}
		adjusted := adjustWeekend(candidate)
		if !adjusted.Before(today) {
			return adjusted
		}
		y, m = nextMonth(y, m)
	}
	return adjustWeekend(withDay(y, m, day))
}

// DaysUntilPayday returns the payday and the number of days left until it.
func DaysUntilPayday(day int, today time.Time) (time.Time, int) {
	payday := NextPayday(day, today)
	return payday, DaysBetween(today, payday)
}

func adjustWeekend(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, -2)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	}
	return t
}

func nextMonth(y int, m time.Month) (int, time.Month) {
	if m == time.December {
		return y + 1, time.January
	}
	return y, m + 1
}

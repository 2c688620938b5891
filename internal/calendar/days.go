// Package calendar generates the day ranges queried for a month.
package calendar

import "time"

// DaysInMonth returns every calendar day of (year, month) from the 1st up to
// the month's last day or today, whichever is earlier. Dates are midnight in
// today's location. A month that starts after today, or a month outside 1..12,
// yields an empty range.
func DaysInMonth(month, year int, today time.Time) []time.Time {
	if month < 1 || month > 12 {
		return nil
	}

	loc := today.Location()
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	// Day 0 of the following month is the last day of this one.
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, loc)

	end := Truncate(today)
	if last.Before(end) {
		end = last
	}
	if end.Before(first) {
		return nil
	}

	days := make([]time.Time, 0, end.Day())
	for d := first; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Truncate returns midnight of t's calendar date in t's location.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ISODate formats a day as YYYY-MM-DD.
func ISODate(t time.Time) string {
	return t.Format(time.DateOnly)
}

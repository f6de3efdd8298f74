// Package calendar holds the date arithmetic used by ledger dates. Ledger
// dates carry no time of day: they are normalised to UTC midnight.
package calendar

import "time"

// Clock returns the current instant. Services accept one so "today" can be
// pinned in tests.
type Clock func() time.Time

// Day normalises t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a ledger date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Today is the ledger date of now().
func (c Clock) Today() time.Time {
	if c == nil {
		return Day(time.Now())
	}

	return Day(c())
}

// AddMonths adds n calendar months, clamping to the last day of the target
// month instead of overflowing (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	t = Day(t)
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)

	day := min(t.Day(), daysIn(first.Year(), first.Month()))

	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// AddYears adds n calendar years with the same clamping as AddMonths.
func AddYears(t time.Time, n int) time.Time {
	return AddMonths(t, 12*n)
}

// DaysBetween returns the number of whole days from a to b (negative when b
// is before a).
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

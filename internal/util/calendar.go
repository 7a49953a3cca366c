package util

import "time"

// DateLayout is the on-disk and display date format.
const DateLayout = "2006-01-02"

// Clock returns the current time. Components take a Clock so tests can pin
// "today".
type Clock func() time.Time

// Day truncates t to local midnight of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in a's
// location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysAgo returns the calendar day n days before t's day.
func DaysAgo(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, -n)
}

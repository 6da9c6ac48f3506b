package utils

import "time"

func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two instants fall on the same calendar date.
// Either side being nil means false.
func SameDay(a *time.Time, b time.Time) bool {
	if a == nil {
		return false
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// BusinessWeekday maps Go's Sunday=0 convention to Monday=0 ... Sunday=6.
func BusinessWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

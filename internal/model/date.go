package model

import "time"

// Day truncates t to its civil date, expressed as midnight UTC.
// Stored dates use this form so values round-trip through SQL DATE columns unchanged.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the civil date n days after day.
func AddDays(day time.Time, n int) time.Time {
	return Day(day).AddDate(0, 0, n)
}

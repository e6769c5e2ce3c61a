package domain

import "time"

// DayLayout is the storage and display format of a reference day.
const DayLayout = "2006-01-02"

// DayOf truncates t to midnight of its UTC calendar day.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a reference day by n calendar days.
func AddDays(day time.Time, n int) time.Time {
	return DayOf(day).AddDate(0, 0, n)
}

// FormatDay renders a reference day as YYYY-MM-DD.
func FormatDay(day time.Time) string {
	return DayOf(day).Format(DayLayout)
}

// ParseDay reads a YYYY-MM-DD string as a UTC reference day.
func ParseDay(raw string) (time.Time, error) {
	return time.ParseInLocation(DayLayout, raw, time.UTC)
}

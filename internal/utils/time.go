package utils

import (
	"math"
	"time"
)

// FormatTime formats a time.Time as HH:MM in 24-hour format.
func FormatTime(t time.Time) string {
	return t.Format("15:04")
}

// FormatDate formats a time.Time as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(dateStr string) (time.Time, error) {
	return time.Parse("2006-01-02", dateStr)
}

// SecondsToMinutes converts seconds to minutes, rounded to 2 decimal places.
func SecondsToMinutes(seconds int) float64 {
	return math.Round(float64(seconds)/60.0*100) / 100
}

// MinutesToHours converts minutes to hours, rounded to 2 decimal places.
func MinutesToHours(minutes float64) float64 {
	return math.Round(minutes/60.0*100) / 100
}

// HourRange returns the HH:MM start and end labels for an hour slot (0-23).
func HourRange(hour int) (startTime, endTime string) {
	start := time.Date(2000, 1, 1, hour, 0, 0, 0, time.UTC)
	end := time.Date(2000, 1, 1, hour+1, 0, 0, 0, time.UTC)
	return FormatTime(start), FormatTime(end)
}

// WeekBounds snaps any date to the Monday and Sunday of its calendar week.
// The Monday is at 00:00:00 and the Sunday at 23:59:59.999999999 in the
// input's location.
func WeekBounds(d time.Time) (monday time.Time, sunday time.Time) {
	weekday := int(d.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the week it ends
	}
	daysFromMonday := weekday - 1

	monday = d.AddDate(0, 0, -daysFromMonday)
	monday = time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, monday.Location())

	sunday = monday.AddDate(0, 0, 6)
	sunday = time.Date(sunday.Year(), sunday.Month(), sunday.Day(), 23, 59, 59, 999999999, sunday.Location())

	return monday, sunday
}

// NextMonday returns the next Monday 00:00:00 strictly after now.
func NextMonday(now time.Time) time.Time {
	daysAhead := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	if daysAhead == 0 {
		daysAhead = 7
	}
	next := now.AddDate(0, 0, daysAhead)
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, now.Location())
}

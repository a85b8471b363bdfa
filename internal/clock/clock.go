package clock

import (
	"fmt"
	"time"
)

// Zone is the fixed Madagascar offset (UTC+3). All calendar-day and month
// boundaries are computed in this zone, never in the server's local zone.
var Zone = time.FixedZone("EAT", 3*60*60)

// Clock supplies the current instant. Operations take it as a dependency so
// day-rollover and break math are testable with a pinned time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns the wall clock.
func System() Clock { return systemClock{} }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// Fixed returns a clock pinned to t.
func Fixed(t time.Time) Clock { return fixedClock{t} }

// DateKey returns the Madagascar calendar day of t as YYYY-MM-DD. Two
// instants on the same Madagascar day map to the same key even when they
// straddle midnight UTC.
func DateKey(t time.Time) string {
	return t.In(Zone).Format(time.DateOnly)
}

// MonthKey returns the Madagascar calendar month of t as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.In(Zone).Format("2006-01")
}

// MonthKeyOf builds a YYYY-MM key from explicit month and year.
func MonthKeyOf(month time.Month, year int) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// MonthYear returns the Madagascar month and year of t.
func MonthYear(t time.Time) (time.Month, int) {
	lt := t.In(Zone)
	return lt.Month(), lt.Year()
}

// EndOfDay returns 23:59:59.999 Madagascar time of the day named by a
// YYYY-MM-DD key.
func EndOfDay(dateKey string) (time.Time, error) {
	day, err := time.ParseInLocation(time.DateOnly, dateKey, Zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date key %q: %w", dateKey, err)
	}
	return day.Add(24*time.Hour - time.Millisecond), nil
}

// HourOf returns the Madagascar local hour of t (0-23).
func HourOf(t time.Time) int {
	return t.In(Zone).Hour()
}

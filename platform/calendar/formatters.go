package calendar

import (
	"math"
	"time"
)

const (
	unixEpochJD = 2440587.5

	// Julian days of 1 Muharram 1 AH in the tabular Islamic calendars.
	islamicCivilEpoch        = 1948439.5
	islamicAstronomicalEpoch = 1948438.5
)

// Formatter converts a native (proleptic Gregorian) day to a calendar date.
type Formatter interface {
	Format(t time.Time) Date
}

// FormatterFunc adapts a function to the Formatter interface.
type FormatterFunc func(t time.Time) Date

func (f FormatterFunc) Format(t time.Time) Date {
	return f(t)
}

// Gregorian is the identity formatter of the native calendar.
var Gregorian = FormatterFunc(func(t time.Time) Date {
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
})

// IslamicCivil is the tabular Islamic calendar with the civil epoch.
var IslamicCivil = tabular(islamicCivilEpoch)

// IslamicAstronomical is the tabular Islamic calendar with the astronomical
// epoch, one day earlier than the civil one.
var IslamicAstronomical = tabular(islamicAstronomicalEpoch)

func tabular(epoch float64) FormatterFunc {
	return func(t time.Time) Date {
		return tabularFromJD(julianDay(t), epoch)
	}
}

// julianDay returns the Julian day number at the start of the calendar day of t.
func julianDay(t time.Time) float64 {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return float64(day.Unix()/86400) + unixEpochJD
}

func tabularToJD(year, month, day int, epoch float64) float64 {
	return float64(day) +
		math.Ceil(29.5*float64(month-1)) +
		float64(year-1)*354 +
		math.Floor(float64(3+11*year)/30) +
		epoch - 1
}

func tabularFromJD(jd, epoch float64) Date {
	jd = math.Floor(jd) + 0.5
	year := int(math.Floor((30*(jd-epoch) + 10646) / 10631))
	month := int(math.Min(12, math.Ceil((jd-(29+tabularToJD(year, 1, 1, epoch)))/29.5)+1))
	day := int(jd-tabularToJD(year, month, 1, epoch)) + 1
	return Date{Year: year, Month: month, Day: day}
}

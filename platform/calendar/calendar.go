// Package calendar converts dates between the native Gregorian calendar and
// other calendar systems described only by a formatter, approximating the
// reverse direction iteratively.
package calendar

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/robbyt/go-evmod/internal/helpers"
)

const (
	Native   = "gregory"
	maxCycle = 10
)

// Date is a day in some calendar. Months and days count from 1.
type Date struct {
	Year  int `json:"year"  yaml:"year"`
	Month int `json:"month" yaml:"month"`
	Day   int `json:"day"   yaml:"day"`
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Calendar describes a calendar system. MinDays is the length of its
// shortest month and MinMonths the number of months in its shortest year;
// ToNative uses them to scale a year or month error into days.
type Calendar struct {
	MinDays   int
	MinMonths int
	Formatter Formatter
}

func (c Calendar) validate() error {
	if c.MinDays < 1 || c.MinMonths < 1 {
		return fmt.Errorf("%w: MinDays and MinMonths must be positive", ErrInvalidCalendar)
	}
	if c.Formatter == nil {
		return fmt.Errorf("%w: formatter is nil", ErrInvalidCalendar)
	}
	return nil
}

// Defaults returns the built-in calendars.
func Defaults() map[string]Calendar {
	return map[string]Calendar{
		Native:          {MinDays: 28, MinMonths: 12, Formatter: Gregorian},
		"islamic":       {MinDays: 29, MinMonths: 12, Formatter: IslamicCivil},
		"islamic-civil": {MinDays: 29, MinMonths: 12, Formatter: IslamicCivil},
		"islamic-tbla":  {MinDays: 29, MinMonths: 12, Formatter: IslamicAstronomical},
	}
}

// Option configures a Converter.
type Option func(*Converter) error

// WithClock sets the source of the starting point for approximations.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		c.now = now
		return nil
	}
}

func WithLogHandler(handler slog.Handler) Option {
	return func(c *Converter) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		c.logHandler = handler
		c.logger = nil
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		c.logHandler = nil
		return nil
	}
}

// Converter holds a table of named calendars.
type Converter struct {
	now        func() time.Time
	logHandler slog.Handler
	logger     *slog.Logger

	mu        sync.RWMutex
	calendars map[string]Calendar
}

// NewConverter creates a Converter holding the default calendars.
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		now:       time.Now,
		calendars: Defaults(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("error applying option: %w", err)
		}
	}
	c.logHandler, c.logger = helpers.LoggerOrDefault(c.logger, c.logHandler, "calendar", "Converter")
	return c, nil
}

// Add registers or replaces a calendar.
func (c *Converter) Add(name string, cal Calendar) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidCalendar)
	}
	if err := cal.validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calendars[name] = cal
	return nil
}

// Delete removes a calendar. The native calendar cannot be removed.
func (c *Converter) Delete(name string) bool {
	if name == Native {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.calendars[name]; !ok {
		return false
	}
	delete(c.calendars, name)
	return true
}

// Names returns the registered calendar names in sorted order.
func (c *Converter) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.calendars))
	for name := range c.calendars {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (c *Converter) calendar(name string) (Calendar, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cal, ok := c.calendars[name]
	if !ok {
		return Calendar{}, fmt.Errorf("%w: %q", ErrUnknownCalendar, name)
	}
	return cal, nil
}

// FromNative returns the date of t in the named calendar.
func (c *Converter) FromNative(t time.Time, name string) (Date, error) {
	cal, err := c.calendar(name)
	if err != nil {
		return Date{}, err
	}
	return cal.Formatter.Format(t), nil
}

// ToNative returns midnight UTC of the native day matching date in the named
// calendar. Starting from today it corrects the year, then the month, then
// the day, each by its error scaled to days, until the formatted part
// matches.
func (c *Converter) ToNative(date Date, name string) (time.Time, error) {
	if date.Month < 1 || date.Day < 1 {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidDate, date)
	}
	if name == Native {
		t := time.Date(date.Year, time.Month(date.Month), date.Day, 0, 0, 0, 0, time.UTC)
		if Gregorian(t) != date {
			return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidDate, date)
		}
		return t, nil
	}

	cal, err := c.calendar(name)
	if err != nil {
		return time.Time{}, err
	}

	now := c.now()
	result := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	parts := []struct {
		name       string
		multiplier int
		get        func(Date) int
	}{
		{name: "year", multiplier: cal.MinDays * cal.MinMonths, get: func(d Date) int { return d.Year }},
		{name: "month", multiplier: cal.MinDays, get: func(d Date) int { return d.Month }},
		{name: "day", multiplier: 1, get: func(d Date) int { return d.Day }},
	}

	for _, part := range parts {
		converged := false
		for range maxCycle {
			diff := part.get(date) - part.get(cal.Formatter.Format(result))
			if diff == 0 {
				converged = true
				break
			}
			result = result.AddDate(0, 0, diff*part.multiplier)
		}
		if !converged {
			c.logger.Warn("approximation cycles exceeded", "calendar", name, "date", date.String(), "part", part.name)
			return time.Time{}, fmt.Errorf("%w: %s %s in %s", ErrNoConvergence, name, date, part.name)
		}
	}

	if got := cal.Formatter.Format(result); got != date {
		return time.Time{}, fmt.Errorf("%w: %s does not exist in %s (nearest %s)", ErrInvalidDate, date, name, got)
	}
	return result, nil
}

// Convert converts date from one calendar to another through the native calendar.
func (c *Converter) Convert(date Date, from, to string) (Date, error) {
	t, err := c.ToNative(date, from)
	if err != nil {
		return Date{}, err
	}
	return c.FromNative(t, to)
}

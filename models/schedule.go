package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Frequency is the recurrence rule of a schedule.
type Frequency string

const (
	Hourly Frequency = "hourly"
	Daily  Frequency = "daily"
	Weekly Frequency = "weekly"
)

// ScheduleStatus is the last known execution state of a schedule.
type ScheduleStatus string

const (
	StatusIdle     ScheduleStatus = "idle"
	StatusActive   ScheduleStatus = "active"
	StatusComplete ScheduleStatus = "complete"
	StatusFailed   ScheduleStatus = "failed"
)

// ErrInvalidSchedule wraps every schedule validation failure.
var ErrInvalidSchedule = errors.New("invalid schedule")

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Schedule is a persisted recurring scrape job plus its execution state.
type Schedule struct {
	ID         string            `json:"id"`
	Frequency  Frequency         `json:"frequency"`
	TimeOfDay  string            `json:"time,omitempty"`
	DayOfWeek  string            `json:"day,omitempty"`
	Categories map[string]string `json:"categories,omitempty"`
	IsRunning  bool              `json:"is_running"`
	Status     ScheduleStatus    `json:"status"`
	LastRun    *time.Time        `json:"last_run,omitempty"`
}

// Validate checks the recurrence fields and normalises TimeOfDay and DayOfWeek in place.
func (s *Schedule) Validate() error {
	switch s.Frequency {
	case Hourly:
		return nil
	case Daily, Weekly:
	default:
		return fmt.Errorf("%w: unknown frequency %q (want hourly, daily or weekly)", ErrInvalidSchedule, s.Frequency)
	}

	hhmm, err := NormaliseTimeOfDay(s.TimeOfDay)
	if err != nil {
		return err
	}
	s.TimeOfDay = hhmm

	if s.Frequency == Weekly {
		day, err := NormaliseWeekday(s.DayOfWeek)
		if err != nil {
			return err
		}
		s.DayOfWeek = day
	}
	return nil
}

// Weekday returns the configured weekday of a weekly schedule.
func (s *Schedule) Weekday() (time.Weekday, bool) {
	if len(s.DayOfWeek) < 3 {
		return time.Sunday, false
	}
	wd, ok := weekdays[strings.ToLower(s.DayOfWeek[:3])]
	return wd, ok
}

// NormaliseTimeOfDay parses "H:MM" or "HH:MM" and returns the zero-padded "HH:MM" form.
func NormaliseTimeOfDay(raw string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidSchedule, raw)
	}
	return t.Format("15:04"), nil
}

// NormaliseWeekday accepts "mon", "Monday", "MON" and returns the three letter lower case form.
func NormaliseWeekday(raw string) (string, error) {
	day := strings.ToLower(strings.TrimSpace(raw))
	if len(day) >= 3 {
		if _, ok := weekdays[day[:3]]; ok {
			return day[:3], nil
		}
	}
	return "", fmt.Errorf("%w: day %q must be a weekday such as mon or sun", ErrInvalidSchedule, raw)
}

// Package scheduler evaluates persisted schedules and coordinates their runs.
package scheduler

import (
	"time"

	"amazon-scraper/models"
)

// IsDue reports whether s should be dispatched at now.
// Daily and weekly schedules fire once in their matching minute; a lastRun dated
// today (in now's location) suppresses further firings until the next occurrence.
func IsDue(s *models.Schedule, now time.Time) bool {
	if s == nil || s.IsRunning {
		return false
	}

	switch s.Frequency {
	case models.Hourly:
		return true
	case models.Daily:
		return atTimeOfDay(s, now)
	case models.Weekly:
		wd, ok := s.Weekday()
		if !ok || wd != now.Weekday() {
			return false
		}
		return atTimeOfDay(s, now)
	default:
		return false
	}
}

func atTimeOfDay(s *models.Schedule, now time.Time) bool {
	hhmm, err := models.NormaliseTimeOfDay(s.TimeOfDay)
	if err != nil || now.Format("15:04") != hhmm {
		return false
	}
	if s.LastRun == nil {
		return true
	}
	return !sameDate(s.LastRun.In(now.Location()), now)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

package scheduler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"amazon-scraper/models"
	"amazon-scraper/scheduler"
)

// Monday 4 March 2024.
var monday = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

func at(t time.Time) *time.Time { return &t }

func TestIsDue(t *testing.T) {
	tests := map[string]struct {
		schedule models.Schedule
		now      time.Time
		want     bool
	}{
		"hourly always": {
			schedule: models.Schedule{Frequency: models.Hourly, LastRun: at(monday.Add(-time.Minute))},
			now:      monday,
			want:     true,
		},
		"running never": {
			schedule: models.Schedule{Frequency: models.Hourly, IsRunning: true},
			now:      monday,
		},
		"daily at time": {
			schedule: models.Schedule{Frequency: models.Daily, TimeOfDay: "09:00"},
			now:      monday,
			want:     true,
		},
		"daily unpadded time": {
			schedule: models.Schedule{Frequency: models.Daily, TimeOfDay: "9:00"},
			now:      monday.Add(30 * time.Second),
			want:     true,
		},
		"daily other minute": {
			schedule: models.Schedule{Frequency: models.Daily, TimeOfDay: "09:00"},
			now:      monday.Add(time.Minute),
		},
		"daily already ran today": {
			schedule: models.Schedule{Frequency: models.Daily, TimeOfDay: "09:00", LastRun: at(monday)},
			now:      monday.Add(20 * time.Second),
		},
		"daily ran yesterday": {
			schedule: models.Schedule{Frequency: models.Daily, TimeOfDay: "09:00", LastRun: at(monday.AddDate(0, 0, -1))},
			now:      monday,
			want:     true,
		},
		"weekly on day": {
			schedule: models.Schedule{Frequency: models.Weekly, TimeOfDay: "09:00", DayOfWeek: "mon"},
			now:      monday,
			want:     true,
		},
		"weekly long day name": {
			schedule: models.Schedule{Frequency: models.Weekly, TimeOfDay: "09:00", DayOfWeek: "Monday"},
			now:      monday,
			want:     true,
		},
		"weekly other day": {
			schedule: models.Schedule{Frequency: models.Weekly, TimeOfDay: "09:00", DayOfWeek: "tue"},
			now:      monday,
		},
		"weekly already ran today": {
			schedule: models.Schedule{Frequency: models.Weekly, TimeOfDay: "09:00", DayOfWeek: "mon", LastRun: at(monday)},
			now:      monday,
		},
		"weekly ran last week": {
			schedule: models.Schedule{Frequency: models.Weekly, TimeOfDay: "09:00", DayOfWeek: "mon", LastRun: at(monday.AddDate(0, 0, -7))},
			now:      monday,
			want:     true,
		},
		"unknown frequency": {
			schedule: models.Schedule{Frequency: "monthly", TimeOfDay: "09:00"},
			now:      monday,
		},
		"bad time": {
			schedule: models.Schedule{Frequency: models.Daily, TimeOfDay: "9am"},
			now:      monday,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := tt.schedule
			assert.Equal(t, tt.want, scheduler.IsDue(&s, tt.now))
		})
	}
}

func TestIsDueComparesDatesInTickLocation(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*60*60+30*60)
	now := time.Date(2024, time.March, 4, 6, 0, 0, 0, kolkata)
	// 23:45 UTC on the 3rd is already 05:15 on the 4th in Kolkata
	lastRun := time.Date(2024, time.March, 3, 23, 45, 0, 0, time.UTC)

	s := &models.Schedule{Frequency: models.Daily, TimeOfDay: "06:00", LastRun: &lastRun}
	assert.False(t, scheduler.IsDue(s, now))
}

func TestDailyFiresOncePerDay(t *testing.T) {
	s := &models.Schedule{Frequency: models.Daily, TimeOfDay: "09:00"}

	var fired []time.Time
	start := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	// ticks every 20 seconds for three days, several of them inside the matching minute
	for now := start; now.Before(start.AddDate(0, 0, 3)); now = now.Add(20 * time.Second) {
		if scheduler.IsDue(s, now) {
			fired = append(fired, now)
			done := now
			s.LastRun = &done
		}
	}

	assert.Equal(t, []time.Time{
		time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 6, 9, 0, 0, 0, time.UTC),
	}, fired)
}

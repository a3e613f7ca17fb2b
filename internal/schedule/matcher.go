// Package schedule decides which loop schedules fire at a given local minute.
package schedule

import (
	"time"

	"github.com/maheshrc27/contentloop/internal/models"
)

// Matches reports whether s fires at nowLocal. nowLocal must already be in the
// brand's timezone; comparison is at minute granularity.
func Matches(s models.LoopSchedule, nowLocal time.Time) bool {
	if s.DayOfWeek != nowLocal.Weekday() {
		return false
	}
	hour, minute, err := models.ParseTimeOfDay(s.TimeOfDay)
	if err != nil {
		return false
	}
	return nowLocal.Hour() == hour && nowLocal.Minute() == minute
}

func Due(schedules []models.LoopSchedule, nowLocal time.Time) []models.LoopSchedule {
	var due []models.LoopSchedule
	for _, s := range schedules {
		if Matches(s, nowLocal) {
			due = append(due, s)
		}
	}
	return due
}

// PlatformsFor unions the firing platforms of every due schedule. A schedule
// with a platform override fires only that platform, otherwise it fires all of
// the loop's platforms. The result is de-duplicated and keeps first-seen order.
func PlatformsFor(loop *models.Loop, due []models.LoopSchedule) []models.Platform {
	seen := make(map[models.Platform]struct{})
	var out []models.Platform
	add := func(p models.Platform) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, s := range due {
		if s.Platform != nil {
			add(*s.Platform)
			continue
		}
		for _, p := range loop.Platforms {
			add(p)
		}
	}
	return out
}

// NextFire returns the first instant strictly after from (in from's location)
// at which any schedule fires, and false when there are no valid schedules.
func NextFire(schedules []models.LoopSchedule, from time.Time) (time.Time, bool) {
	var best time.Time
	found := false
	start := from.Truncate(time.Minute)
	for _, s := range schedules {
		hour, minute, err := models.ParseTimeOfDay(s.TimeOfDay)
		if err != nil {
			continue
		}
		for d := 0; d <= 7; d++ {
			day := start.AddDate(0, 0, d)
			if day.Weekday() != s.DayOfWeek {
				continue
			}
			at := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, from.Location())
			if !at.After(from) {
				continue
			}
			if !found || at.Before(best) {
				best = at
				found = true
			}
			break
		}
	}
	return best, found
}

package schedule

import (
	"testing"
	"time"

	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func platform(p models.Platform) *models.Platform { return &p }

// Monday 2026-03-02 09:00 at UTC-5.
func mondayNine(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2026, 3, 2, 9, 0, 0, 0, time.FixedZone("EST", -5*60*60))
}

func TestMatches(t *testing.T) {
	t.Parallel()

	now := mondayNine(t)
	cases := []struct {
		name string
		s    models.LoopSchedule
		want bool
	}{
		{"same minute", models.LoopSchedule{DayOfWeek: time.Monday, TimeOfDay: "09:00"}, true},
		{"other day", models.LoopSchedule{DayOfWeek: time.Tuesday, TimeOfDay: "09:00"}, false},
		{"one minute later", models.LoopSchedule{DayOfWeek: time.Monday, TimeOfDay: "09:01"}, false},
		{"malformed", models.LoopSchedule{DayOfWeek: time.Monday, TimeOfDay: "9:00"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Matches(tc.s, now))
		})
	}

	// Seconds within the minute still match.
	assert.True(t, Matches(cases[0].s, now.Add(59*time.Second)))
}

func TestMatchesUsesLocalClock(t *testing.T) {
	t.Parallel()

	now := mondayNine(t)
	s := models.LoopSchedule{DayOfWeek: time.Monday, TimeOfDay: "09:00"}
	assert.False(t, Matches(s, now.UTC()))
	assert.True(t, Matches(s, now.UTC().In(now.Location())))
}

func TestDue(t *testing.T) {
	t.Parallel()

	now := mondayNine(t)
	schedules := []models.LoopSchedule{
		{ID: 1, DayOfWeek: time.Monday, TimeOfDay: "09:00"},
		{ID: 2, DayOfWeek: time.Monday, TimeOfDay: "10:00"},
		{ID: 3, DayOfWeek: time.Monday, TimeOfDay: "09:00", Platform: platform(models.PlatformLinkedIn)},
	}
	due := Due(schedules, now)
	require.Len(t, due, 2)
	assert.Equal(t, int64(1), due[0].ID)
	assert.Equal(t, int64(3), due[1].ID)
	assert.Empty(t, Due(schedules, now.Add(time.Minute)))
}

func TestPlatformsFor(t *testing.T) {
	t.Parallel()

	loop := &models.Loop{Platforms: []models.Platform{models.PlatformTwitter, models.PlatformLinkedIn}}

	t.Run("loop platforms", func(t *testing.T) {
		got := PlatformsFor(loop, []models.LoopSchedule{{}})
		assert.Equal(t, []models.Platform{models.PlatformTwitter, models.PlatformLinkedIn}, got)
	})

	t.Run("override only", func(t *testing.T) {
		got := PlatformsFor(loop, []models.LoopSchedule{{Platform: platform(models.PlatformThreads)}})
		assert.Equal(t, []models.Platform{models.PlatformThreads}, got)
	})

	t.Run("union is deduplicated", func(t *testing.T) {
		got := PlatformsFor(loop, []models.LoopSchedule{
			{Platform: platform(models.PlatformLinkedIn)},
			{},
			{Platform: platform(models.PlatformThreads)},
		})
		assert.Equal(t, []models.Platform{models.PlatformLinkedIn, models.PlatformTwitter, models.PlatformThreads}, got)
	})

	t.Run("nothing due", func(t *testing.T) {
		assert.Empty(t, PlatformsFor(loop, nil))
	})
}

func TestNextFire(t *testing.T) {
	t.Parallel()

	now := mondayNine(t)
	schedules := []models.LoopSchedule{
		{DayOfWeek: time.Monday, TimeOfDay: "09:00"},
		{DayOfWeek: time.Wednesday, TimeOfDay: "12:30"},
	}

	next, ok := NextFire(schedules, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 4, 12, 30, 0, 0, now.Location()), next)

	next, ok = NextFire(schedules[:1], now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 9, 9, 0, 0, 0, now.Location()), next)

	_, ok = NextFire(nil, now)
	assert.False(t, ok)
}

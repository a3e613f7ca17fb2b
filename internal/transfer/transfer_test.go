package transfer

import (
	"testing"
	"time"

	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLoopCreation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		req     LoopCreation
		wantErr string
	}{
		{"valid", LoopCreation{Name: "Evergreen", Platforms: []string{"twitter", "linkedin"}}, ""},
		{"missing name", LoopCreation{Platforms: []string{"twitter"}}, "name failed validation for tag 'required'"},
		{"no platforms", LoopCreation{Name: "x"}, "platforms failed validation for tag 'required'"},
		{"unknown platform", LoopCreation{Name: "x", Platforms: []string{"myspace"}}, "platforms[0] failed validation for tag 'platform'"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.req)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, models.ErrInvalidInput)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateSchedules(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Validate(ScheduleReplace{Schedules: []ScheduleInput{{DayOfWeek: 1, TimeOfDay: "09:30", Platform: "threads"}}}))
	assert.ErrorIs(t, Validate(ScheduleReplace{Schedules: []ScheduleInput{{DayOfWeek: 7, TimeOfDay: "09:30"}}}), models.ErrInvalidInput)
	assert.ErrorIs(t, Validate(ScheduleReplace{Schedules: []ScheduleInput{{DayOfWeek: 1, TimeOfDay: "24:00"}}}), models.ErrInvalidInput)
	assert.ErrorIs(t, Validate(ScheduleReplace{Schedules: []ScheduleInput{{DayOfWeek: 1, TimeOfDay: "9:30"}}}), models.ErrInvalidInput)
}

func TestValidateItemCreation(t *testing.T) {
	t.Parallel()

	ok := ItemCreation{ContentInput: ContentInput{Body: "hi", Format: "image", Media: []MediaInput{{URL: "https://cdn/x.png"}}}}
	assert.NoError(t, Validate(ok))

	bad := ItemCreation{ContentInput: ContentInput{Body: "hi", Format: "hologram"}}
	assert.ErrorIs(t, Validate(bad), models.ErrInvalidInput)

	badMedia := ItemCreation{ContentInput: ContentInput{Media: []MediaInput{{URL: "not a url"}}}}
	err := Validate(badMedia)
	require.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Contains(t, err.Error(), "url")
}

func TestValidateBulkSchedule(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	assert.NoError(t, Validate(BulkScheduleRequest{PostIDs: []int64{1, 2}, BaseTime: base, IntervalMinutes: 30}))
	assert.Error(t, Validate(BulkScheduleRequest{PostIDs: []int64{1}, IntervalMinutes: 30}))
	assert.Error(t, Validate(BulkScheduleRequest{PostIDs: []int64{0}, BaseTime: base}))
	assert.Error(t, Validate(BulkScheduleRequest{PostIDs: []int64{1}, BaseTime: base, IntervalMinutes: -1}))
}

func TestContentInputConversion(t *testing.T) {
	t.Parallel()

	in := ContentInput{
		Body:     "Evergreen",
		Hashtags: []string{"#go", " ", "tips"},
		Link:     " https://example.com ",
		Media:    []MediaInput{{URL: "https://cdn/a.mp4"}, {URL: "https://cdn/b", Kind: "image"}},
		Format:   "",
	}
	c := in.Content()
	assert.Equal(t, []string{"go", "tips"}, c.Hashtags)
	assert.Equal(t, "https://example.com", c.Link)
	assert.Equal(t, models.FormatText, c.Format)
	assert.Equal(t, models.MediaList{
		{URL: "https://cdn/a.mp4", Kind: models.MediaVideo},
		{URL: "https://cdn/b", Kind: models.MediaImage},
	}, c.Media)
}

func TestScheduleInputConversion(t *testing.T) {
	t.Parallel()

	s := ScheduleInput{DayOfWeek: 3, TimeOfDay: "12:00", Platform: "linkedin"}.Schedule()
	assert.Equal(t, time.Wednesday, s.DayOfWeek)
	require.NotNil(t, s.Platform)
	assert.Equal(t, models.PlatformLinkedIn, *s.Platform)

	assert.Nil(t, ScheduleInput{DayOfWeek: 3, TimeOfDay: "12:00"}.Schedule().Platform)
}

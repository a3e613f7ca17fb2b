package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Loop struct {
	ID                   int64      `db:"id" json:"id"`
	BrandID              int64      `db:"brand_id" json:"brand_id"`
	Name                 string     `db:"name" json:"name"`
	Active               bool       `db:"active" json:"active"`
	Platforms            []Platform `db:"platforms" json:"platforms"`
	CurrentPosition      int        `db:"current_position" json:"current_position"`
	TotalCyclesCompleted int        `db:"total_cycles_completed" json:"total_cycles_completed"`
	LastFiredAt          *time.Time `db:"last_fired_at" json:"last_fired_at"`
	Version              int64      `db:"version" json:"-"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// FiredWithin reports whether the loop was last fired in the same minute as t.
func (l *Loop) FiredWithin(t time.Time) bool {
	if l.LastFiredAt == nil {
		return false
	}
	return l.LastFiredAt.Truncate(time.Minute).Equal(t.Truncate(time.Minute))
}

type LoopItem struct {
	ID           int64      `db:"id" json:"id"`
	LoopID       int64      `db:"loop_id" json:"loop_id"`
	Position     int        `db:"position" json:"position"`
	Body         string     `db:"body" json:"body"`
	Hashtags     []string   `db:"hashtags" json:"hashtags"`
	Link         string     `db:"link" json:"link"`
	Media        MediaList  `db:"media" json:"media"`
	Format       Format     `db:"format" json:"format"`
	Platform     Platform   `db:"platform" json:"platform,omitempty"`
	SocialPostID *int64     `db:"social_post_id" json:"social_post_id,omitempty"`
	TimesPosted  int        `db:"times_posted" json:"times_posted"`
	LastPostedAt *time.Time `db:"last_posted_at" json:"last_posted_at"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

func (i *LoopItem) IsDelegated() bool {
	return i.SocialPostID != nil
}

// Source returns the tagged content source of the item. Callers that need the
// actual content go through content.Resolver.
func (i *LoopItem) Source() ContentSource {
	if i.SocialPostID != nil {
		return Delegated{SocialPostID: *i.SocialPostID}
	}
	return Standalone{Content: Content{
		Body:     i.Body,
		Hashtags: i.Hashtags,
		Link:     i.Link,
		Media:    i.Media,
		Format:   i.Format,
		Platform: i.Platform,
	}}
}

// SetContent replaces the item's own content columns.
func (i *LoopItem) SetContent(c Content) error {
	if i.IsDelegated() {
		return ErrItemReadOnly
	}
	i.Body = c.Body
	i.Hashtags = c.Hashtags
	i.Link = c.Link
	i.Media = c.Media
	i.Format = c.Format
	if i.Format == "" {
		i.Format = DefaultFormat
	}
	i.Platform = c.Platform
	return nil
}

func (i *LoopItem) RecordPosted(at time.Time) {
	i.TimesPosted++
	i.LastPostedAt = &at
}

type LoopSchedule struct {
	ID        int64        `db:"id" json:"id"`
	LoopID    int64        `db:"loop_id" json:"loop_id"`
	DayOfWeek time.Weekday `db:"day_of_week" json:"day_of_week"`
	TimeOfDay string       `db:"time_of_day" json:"time_of_day"` // HH:MM, brand local time
	Platform  *Platform    `db:"platform" json:"platform,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// ParseTimeOfDay parses "HH:MM" into hour and minute.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("%w: time of day %q must be HH:MM", ErrInvalidInput, s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: hour out of range in %q", ErrInvalidInput, s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: minute out of range in %q", ErrInvalidInput, s)
	}
	return hour, minute, nil
}

func (s *LoopSchedule) Validate() error {
	if s.DayOfWeek < time.Sunday || s.DayOfWeek > time.Saturday {
		return fmt.Errorf("%w: day of week %d out of range", ErrInvalidInput, s.DayOfWeek)
	}
	if _, _, err := ParseTimeOfDay(s.TimeOfDay); err != nil {
		return err
	}
	if s.Platform != nil && !s.Platform.Valid() {
		return fmt.Errorf("%w: unknown platform %q", ErrInvalidInput, *s.Platform)
	}
	return nil
}

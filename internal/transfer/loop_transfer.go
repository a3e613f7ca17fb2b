package transfer

import (
	"strings"
	"time"

	"github.com/maheshrc27/contentloop/internal/content"
	"github.com/maheshrc27/contentloop/internal/models"
)

type LoopCreation struct {
	Name      string   `json:"name" validate:"required,max=200"`
	Active    *bool    `json:"active"`
	Platforms []string `json:"platforms" validate:"required,min=1,dive,platform"`
}

type LoopUpdate struct {
	Name      *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Active    *bool    `json:"active"`
	Platforms []string `json:"platforms" validate:"omitempty,min=1,dive,platform"`
}

type MediaInput struct {
	URL  string `json:"url" validate:"required,url"`
	Kind string `json:"kind" validate:"omitempty,oneof=image video unknown"`
}

type ContentInput struct {
	Body     string       `json:"body" validate:"max=63206"`
	Hashtags []string     `json:"hashtags" validate:"max=30,dive,max=100"`
	Link     string       `json:"link" validate:"omitempty,url"`
	Media    []MediaInput `json:"media" validate:"max=10,dive"`
	Format   string       `json:"format" validate:"omitempty,post_format"`
	Platform string       `json:"platform" validate:"omitempty,platform"`
}

// ItemCreation adds either standalone content or a delegation to an existing
// social post, never both.
type ItemCreation struct {
	ContentInput
	SocialPostID *int64 `json:"social_post_id" validate:"omitempty,gt=0"`
}

type ReorderRequest struct {
	ItemIDs []int64 `json:"item_ids" validate:"required,min=1,dive,gt=0"`
}

type ScheduleInput struct {
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"`
	TimeOfDay string `json:"time_of_day" validate:"required,hhmm"`
	Platform  string `json:"platform" validate:"omitempty,platform"`
}

type ScheduleReplace struct {
	Schedules []ScheduleInput `json:"schedules" validate:"max=100,dive"`
}

type ImportFeedRequest struct {
	URL   string `json:"url" validate:"required,url"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=100"`
}

type ImportResult struct {
	Imported int                `json:"imported"`
	Skipped  int                `json:"skipped"`
	Items    []*models.LoopItem `json:"items"`
}

// ItemView is a loop item with its resolved content and per-platform
// qualification.
type ItemView struct {
	*models.LoopItem
	Content      models.ContentView         `json:"content"`
	Disqualified map[models.Platform]string `json:"disqualified,omitempty"`
}

type LoopDetail struct {
	*models.Loop
	Items     []*ItemView           `json:"items"`
	Schedules []models.LoopSchedule `json:"schedules"`
	NextFire  *time.Time            `json:"next_fire,omitempty"`
}

// Content converts the request into model content. Media kinds that were not
// given are guessed from the URL.
func (in ContentInput) Content() models.Content {
	media := make(models.MediaList, 0, len(in.Media))
	for _, m := range in.Media {
		kind := models.MediaKind(m.Kind)
		if kind == "" {
			kind = content.KindFromURL(m.URL)
		}
		media = append(media, models.MediaRef{URL: m.URL, Kind: kind})
	}

	var tags []string
	for _, tag := range in.Hashtags {
		if tag = strings.TrimPrefix(strings.TrimSpace(tag), "#"); tag != "" {
			tags = append(tags, tag)
		}
	}

	return models.Content{
		Body:     in.Body,
		Hashtags: tags,
		Link:     strings.TrimSpace(in.Link),
		Media:    media,
		Format:   models.ParseFormat(in.Format),
		Platform: models.Platform(in.Platform),
	}
}

func (in ScheduleInput) Schedule() models.LoopSchedule {
	s := models.LoopSchedule{DayOfWeek: time.Weekday(in.DayOfWeek), TimeOfDay: in.TimeOfDay}
	if in.Platform != "" {
		p := models.Platform(in.Platform)
		s.Platform = &p
	}
	return s
}

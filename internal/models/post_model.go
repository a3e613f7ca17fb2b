package models

import "time"

type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusQueued    PostStatus = "queued"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPublished PostStatus = "published"
	PostStatusFailed    PostStatus = "failed"
)

// SocialPost is one dispatchable unit of content. Status is authoritative;
// PublishedAt and FailureReason are payload derived from it.
type SocialPost struct {
	ID            int64      `db:"id" json:"id"`
	BrandID       int64      `db:"brand_id" json:"brand_id"`
	Platform      Platform   `db:"platform" json:"platform"`
	Format        Format     `db:"format" json:"format"`
	Body          string     `db:"body" json:"body"`
	Hashtags      []string   `db:"hashtags" json:"hashtags"`
	Media         MediaList  `db:"media" json:"media"`
	Link          string     `db:"link" json:"link"`
	Status        PostStatus `db:"status" json:"status"`
	ScheduledAt   *time.Time `db:"scheduled_at" json:"scheduled_at"`
	PublishedAt   *time.Time `db:"published_at" json:"published_at"`
	FailureReason *string    `db:"failure_reason" json:"failure_reason"`
	ExternalID    *string    `db:"external_id" json:"external_id"`
	AIGenerated   bool       `db:"ai_generated" json:"ai_generated"`
	UserEdited    bool       `db:"user_edited" json:"user_edited"`
	SourcePostID  *int64     `db:"source_post_id" json:"source_post_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

func (p *SocialPost) Content() Content {
	return Content{
		Body:     p.Body,
		Hashtags: p.Hashtags,
		Link:     p.Link,
		Media:    p.Media,
		Format:   p.Format,
		Platform: p.Platform,
	}
}

// NewDraftPost builds a draft post for platform from resolved content.
func NewDraftPost(brandID int64, platform Platform, c Content) *SocialPost {
	format := c.Format
	if format == "" {
		format = DefaultFormat
	}
	return &SocialPost{
		BrandID:  brandID,
		Platform: platform,
		Format:   format,
		Body:     c.Body,
		Hashtags: c.Hashtags,
		Media:    c.Media,
		Link:     c.Link,
		Status:   PostStatusDraft,
	}
}

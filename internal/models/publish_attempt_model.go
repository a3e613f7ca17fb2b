package models

import "time"

type PublishAttempt struct {
	ID           int64     `db:"id" json:"id"`
	BrandID      int64     `db:"brand_id" json:"brand_id"`
	PostID       int64     `db:"post_id" json:"post_id"`
	Platform     Platform  `db:"platform" json:"platform"`
	Success      bool      `db:"success" json:"success"`
	ExternalID   string    `db:"external_id" json:"external_id"`
	ErrorMessage string    `db:"error_message" json:"error_message"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

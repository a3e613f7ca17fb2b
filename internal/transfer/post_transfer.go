package transfer

import "time"

type PostCreation struct {
	ContentInput
	Platform     string `json:"platform" validate:"required,platform"`
	AIGenerated  bool   `json:"ai_generated"`
	SourcePostID *int64 `json:"source_post_id" validate:"omitempty,gt=0"`
}

type ScheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

type PublishRequest struct {
	Mode string `json:"mode" validate:"omitempty,oneof=sync async"`
}

type BulkScheduleRequest struct {
	PostIDs         []int64   `json:"post_ids" validate:"required,min=1,max=500,dive,gt=0"`
	BaseTime        time.Time `json:"base_time" validate:"required"`
	IntervalMinutes int       `json:"interval_minutes" validate:"min=0,max=10080"`
}

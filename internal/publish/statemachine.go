// Package publish owns the social post lifecycle and hands posts to the
// external publisher.
package publish

import (
	"fmt"
	"strings"
	"time"

	"github.com/maheshrc27/contentloop/internal/models"
)

var (
	ErrNotPublishable   = fmt.Errorf("%w: post is not in a publishable state", models.ErrConflict)
	ErrCannotQueue      = fmt.Errorf("%w: only draft posts can be queued", models.ErrConflict)
	ErrCannotUnqueue    = fmt.Errorf("%w: only queued posts can return to draft", models.ErrConflict)
	ErrCannotSchedule   = fmt.Errorf("%w: only draft or queued posts can be scheduled", models.ErrConflict)
	ErrCannotFail       = fmt.Errorf("%w: only queued or scheduled posts can fail", models.ErrConflict)
	ErrCannotRetry      = fmt.Errorf("%w: only failed posts can be retried", models.ErrConflict)
	ErrAlreadyPublished = fmt.Errorf("%w: post is already published", models.ErrConflict)
	ErrInvariant        = fmt.Errorf("%w: post payload does not match its status", models.ErrConflict)

	ErrScheduleInPast = fmt.Errorf("%w: scheduled time must be in the future", models.ErrInvalidInput)
	ErrEmptyReason    = fmt.Errorf("%w: failure reason is required", models.ErrInvalidInput)
)

// CanPublish reports whether a publish attempt may start for the post.
func CanPublish(p *models.SocialPost) bool {
	switch p.Status {
	case models.PostStatusDraft, models.PostStatusQueued, models.PostStatusScheduled:
		return true
	}
	return false
}

// ValidateInvariant checks that the nullable payload agrees with the status:
// a failure reason exists only on failed posts, and a publish time only on
// published ones.
func ValidateInvariant(p *models.SocialPost) error {
	failed := p.Status == models.PostStatusFailed
	if failed != (p.FailureReason != nil) {
		return fmt.Errorf("%w: status %s with failure reason set=%t", ErrInvariant, p.Status, p.FailureReason != nil)
	}
	published := p.Status == models.PostStatusPublished
	if published != (p.PublishedAt != nil) {
		return fmt.Errorf("%w: status %s with published_at set=%t", ErrInvariant, p.Status, p.PublishedAt != nil)
	}
	return nil
}

func Queue(p *models.SocialPost) error {
	if p.Status != models.PostStatusDraft {
		return guardError(p, ErrCannotQueue)
	}
	p.Status = models.PostStatusQueued
	return ValidateInvariant(p)
}

// Unqueue takes back a queue move whose publish task never reached the queue.
func Unqueue(p *models.SocialPost) error {
	if p.Status != models.PostStatusQueued {
		return guardError(p, ErrCannotUnqueue)
	}
	p.Status = models.PostStatusDraft
	return ValidateInvariant(p)
}

func Schedule(p *models.SocialPost, at, now time.Time) error {
	if p.Status != models.PostStatusDraft && p.Status != models.PostStatusQueued {
		return guardError(p, ErrCannotSchedule)
	}
	if !at.After(now) {
		return ErrScheduleInPast
	}
	at = at.UTC()
	p.Status = models.PostStatusScheduled
	p.ScheduledAt = &at
	return ValidateInvariant(p)
}

func MarkPublished(p *models.SocialPost, externalID string, at time.Time) error {
	if !CanPublish(p) {
		return guardError(p, ErrNotPublishable)
	}
	at = at.UTC()
	p.Status = models.PostStatusPublished
	p.PublishedAt = &at
	p.FailureReason = nil
	if externalID != "" {
		p.ExternalID = &externalID
	}
	return ValidateInvariant(p)
}

func MarkFailed(p *models.SocialPost, reason string) error {
	if p.Status != models.PostStatusQueued && p.Status != models.PostStatusScheduled {
		return guardError(p, ErrCannotFail)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrEmptyReason
	}
	p.Status = models.PostStatusFailed
	p.FailureReason = &reason
	return ValidateInvariant(p)
}

func Retry(p *models.SocialPost) error {
	if p.Status != models.PostStatusFailed {
		return guardError(p, ErrCannotRetry)
	}
	p.Status = models.PostStatusQueued
	p.FailureReason = nil
	return ValidateInvariant(p)
}

// guardError reports published posts with their own sentinel so callers can
// tell a terminal post apart from one that is merely in the wrong state.
func guardError(p *models.SocialPost, err error) error {
	if p.Status == models.PostStatusPublished {
		return fmt.Errorf("post %d: %w", p.ID, ErrAlreadyPublished)
	}
	return fmt.Errorf("post %d is %s: %w", p.ID, p.Status, err)
}

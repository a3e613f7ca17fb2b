package publish

import (
	"strings"
	"time"

	"github.com/maheshrc27/contentloop/internal/models"
)

// RetryPolicy decides whether a failed post is re-queued by the retry sweep.
type RetryPolicy interface {
	ShouldRetry(post *models.SocialPost, attempts []*models.PublishAttempt, now time.Time) bool
}

// ManualOnly never retries; failed posts wait for an explicit retry.
type ManualOnly struct{}

func (ManualOnly) ShouldRetry(*models.SocialPost, []*models.PublishAttempt, time.Time) bool {
	return false
}

// ExponentialBackoff retries after Base, 2*Base, 4*Base... measured from the
// latest attempt, until MaxAttempts attempts have been made. Posts whose last
// failure was an ambiguous outcome are never retried, since the platform may
// already have the post.
type ExponentialBackoff struct {
	Base        time.Duration
	MaxAttempts int
}

func (b ExponentialBackoff) ShouldRetry(post *models.SocialPost, attempts []*models.PublishAttempt, now time.Time) bool {
	if post.Status != models.PostStatusFailed || len(attempts) == 0 {
		return false
	}
	if post.FailureReason != nil && strings.HasPrefix(*post.FailureReason, ReasonOutcomeUnknown) {
		return false
	}
	if len(attempts) >= b.MaxAttempts {
		return false
	}

	last := attempts[0].CreatedAt
	for _, a := range attempts[1:] {
		if a.CreatedAt.After(last) {
			last = a.CreatedAt
		}
	}
	wait := b.Base << (len(attempts) - 1)
	return !now.Before(last.Add(wait))
}

// NewRetryPolicy maps a configured policy name to a policy. Anything other
// than "backoff" is manual.
func NewRetryPolicy(name string, maxAttempts int) RetryPolicy {
	if name == "backoff" {
		if maxAttempts <= 0 {
			maxAttempts = 3
		}
		return ExponentialBackoff{Base: time.Minute, MaxAttempts: maxAttempts}
	}
	return ManualOnly{}
}

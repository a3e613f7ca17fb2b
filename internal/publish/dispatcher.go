package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/rs/zerolog/log"
)

type Mode string

const (
	ModeAsync Mode = "async"
	ModeSync  Mode = "sync"
)

// ParseMode falls back to async for anything but "sync".
func ParseMode(s string) Mode {
	if Mode(s) == ModeSync {
		return ModeSync
	}
	return ModeAsync
}

// Failure reason prefixes. A caller can tell an ambiguous outcome from a
// definite one by the prefix alone.
const (
	ReasonOutcomeUnknown = "publish outcome unknown"
	ReasonRequestFailed  = "publish request failed"
	ReasonRejected       = "platform rejected post"
	ReasonNotConnected   = "account not connected"
)

// ErrOutcomeUnknown is returned by publishers when the request may or may not
// have reached the platform.
var ErrOutcomeUnknown = errors.New("publish outcome unknown")

const DefaultTimeout = 30 * time.Second

// claimGrace is how long a publish claim outlives the publisher timeout.
const claimGrace = time.Minute

// ErrPublishInFlight means another publisher holds the post, or moved it on,
// before this one could claim it.
var ErrPublishInFlight = fmt.Errorf("%w: post is already being published", models.ErrConflict)

type Credentials struct {
	AccountID   string
	AccessToken string
	ExpiresAt   *time.Time
}

type CredentialStore interface {
	IsConnected(ctx context.Context, brandID int64, platform models.Platform) (bool, error)
	GetCredentials(ctx context.Context, brandID int64, platform models.Platform) (*Credentials, error)
}

type Result struct {
	Success    bool
	ExternalID string
	Error      string
}

type Publisher interface {
	Publish(ctx context.Context, post *models.SocialPost, creds *Credentials) (Result, error)
}

type PublishTask struct {
	PostID    int64
	ProcessAt *time.Time
	// Attempt distinguishes retries of the same post so they are not
	// de-duplicated against the original task.
	Attempt int
}

type TaskQueue interface {
	Enqueue(ctx context.Context, task PublishTask) error
}

type PostStore interface {
	GetByID(ctx context.Context, id int64) (*models.SocialPost, error)
	ListByStatus(ctx context.Context, status models.PostStatus) ([]*models.SocialPost, error)
	// UpdateState saves post if it is still in status from and no live claim
	// holds it, or returns models.ErrStalePost.
	UpdateState(ctx context.Context, post *models.SocialPost, from models.PostStatus) error
	// Claim reserves a post in status from for one publisher until the lease
	// runs out, or returns models.ErrStalePost.
	Claim(ctx context.Context, id int64, from models.PostStatus, now, until time.Time) error
	// Complete saves the outcome of a claimed publish and releases the claim.
	Complete(ctx context.Context, post *models.SocialPost, from models.PostStatus, claim time.Time) error
}

type AttemptStore interface {
	Create(ctx context.Context, a *models.PublishAttempt) (int64, error)
	ListByPost(ctx context.Context, postID int64) ([]*models.PublishAttempt, error)
}

type Dispatcher struct {
	posts     PostStore
	attempts  AttemptStore
	creds     CredentialStore
	publisher Publisher
	queue     TaskQueue
	timeout   time.Duration
	now       func() time.Time
}

type Option func(*Dispatcher)

func WithTimeout(d time.Duration) Option {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(dp *Dispatcher) { dp.now = now }
}

func NewDispatcher(posts PostStore, attempts AttemptStore, creds CredentialStore, publisher Publisher, queue TaskQueue, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		posts:     posts,
		attempts:  attempts,
		creds:     creds,
		publisher: publisher,
		queue:     queue,
		timeout:   DefaultTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch hands a post off for publishing. In async mode the post is queued
// and a publish task enqueued; in sync mode the publisher is called inline and
// the returned post carries the final status.
func (d *Dispatcher) Dispatch(ctx context.Context, post *models.SocialPost, mode Mode) (*models.SocialPost, error) {
	if !CanPublish(post) {
		return nil, guardError(post, ErrNotPublishable)
	}
	if err := d.requireConnected(ctx, post); err != nil {
		return nil, err
	}

	if mode == ModeSync {
		if err := d.queueDraft(ctx, post); err != nil {
			return nil, err
		}
		return post, d.publishInline(ctx, post)
	}

	// The queued state is stored before the task exists, so a worker picking
	// the task up at once never has its outcome overwritten.
	wasDraft := post.Status == models.PostStatusDraft
	if err := d.queueDraft(ctx, post); err != nil {
		return nil, err
	}
	task := PublishTask{PostID: post.ID}
	if post.Status == models.PostStatusScheduled {
		task.ProcessAt = post.ScheduledAt
	}
	if err := d.queue.Enqueue(ctx, task); err != nil {
		if wasDraft {
			d.unqueue(ctx, post)
		}
		return nil, fmt.Errorf("enqueue post %d: %w", post.ID, err)
	}
	log.Info().Int64("post_id", post.ID).Str("platform", string(post.Platform)).Msg("publish task enqueued")
	return post, nil
}

// PublishNow runs the synchronous publish path for a stored post. It is the
// body of the background publish task.
func (d *Dispatcher) PublishNow(ctx context.Context, postID int64) (*models.SocialPost, error) {
	post, err := d.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("load post %d: %w", postID, err)
	}
	if post == nil {
		return nil, fmt.Errorf("%w: post %d", models.ErrNotFound, postID)
	}
	if !CanPublish(post) {
		return post, guardError(post, ErrNotPublishable)
	}
	if err := d.queueDraft(ctx, post); err != nil {
		return nil, err
	}

	if err := d.requireConnected(ctx, post); err != nil {
		if !errors.Is(err, models.ErrNotConnected) {
			return nil, err
		}
		return post, d.fail(ctx, post, ReasonNotConnected, nil)
	}
	return post, d.publishInline(ctx, post)
}

// Retry moves a failed post back to queued and enqueues it again.
func (d *Dispatcher) Retry(ctx context.Context, brandID, postID int64) (*models.SocialPost, error) {
	post, err := d.ownedPost(ctx, brandID, postID)
	if err != nil {
		return nil, err
	}
	if post.Status != models.PostStatusFailed {
		return nil, guardError(post, ErrCannotRetry)
	}
	if err := d.requireConnected(ctx, post); err != nil {
		return nil, err
	}
	return post, d.requeue(ctx, post)
}

// ScheduleTimes returns base, base+interval, ... for n posts.
func ScheduleTimes(base time.Time, interval time.Duration, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = base.Add(time.Duration(i) * interval)
	}
	return out
}

// BulkSchedule spaces posts interval apart starting at base. Every post is
// checked before any of them is touched.
func (d *Dispatcher) BulkSchedule(ctx context.Context, brandID int64, postIDs []int64, base time.Time, interval time.Duration) ([]*models.SocialPost, error) {
	if len(postIDs) == 0 {
		return nil, fmt.Errorf("%w: no posts to schedule", models.ErrInvalidInput)
	}
	if interval < 0 {
		return nil, fmt.Errorf("%w: interval must not be negative", models.ErrInvalidInput)
	}

	now := d.now()
	times := ScheduleTimes(base, interval, len(postIDs))
	posts := make([]*models.SocialPost, 0, len(postIDs))
	seen := make(map[int64]struct{}, len(postIDs))
	for i, id := range postIDs {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: post %d listed twice", models.ErrInvalidInput, id)
		}
		seen[id] = struct{}{}

		post, err := d.ownedPost(ctx, brandID, id)
		if err != nil {
			return nil, err
		}
		if post.Status != models.PostStatusDraft && post.Status != models.PostStatusQueued {
			return nil, guardError(post, ErrCannotSchedule)
		}
		if !times[i].After(now) {
			return nil, ErrScheduleInPast
		}
		if err := d.requireConnected(ctx, post); err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}

	for i, post := range posts {
		if err := d.schedule(ctx, post, times[i], now); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

// ScheduleOne schedules a single post for at.
func (d *Dispatcher) ScheduleOne(ctx context.Context, brandID, postID int64, at time.Time) (*models.SocialPost, error) {
	post, err := d.ownedPost(ctx, brandID, postID)
	if err != nil {
		return nil, err
	}
	if err := d.requireConnected(ctx, post); err != nil {
		return nil, err
	}
	if err := d.schedule(ctx, post, at, d.now()); err != nil {
		return nil, err
	}
	return post, nil
}

// RetrySweep re-queues every failed post the policy allows. It returns the
// number of posts re-queued.
func (d *Dispatcher) RetrySweep(ctx context.Context, policy RetryPolicy) (int, error) {
	failed, err := d.posts.ListByStatus(ctx, models.PostStatusFailed)
	if err != nil {
		return 0, fmt.Errorf("list failed posts: %w", err)
	}

	now := d.now()
	retried := 0
	for _, post := range failed {
		if ctx.Err() != nil {
			return retried, ctx.Err()
		}
		attempts, err := d.attempts.ListByPost(ctx, post.ID)
		if err != nil {
			log.Error().Err(err).Int64("post_id", post.ID).Msg("failed to load publish attempts")
			continue
		}
		if !policy.ShouldRetry(post, attempts, now) {
			continue
		}
		if err := d.requeueWithAttempts(ctx, post, len(attempts)); err != nil {
			log.Error().Err(err).Int64("post_id", post.ID).Msg("failed to re-queue post")
			continue
		}
		retried++
	}
	return retried, nil
}

func (d *Dispatcher) schedule(ctx context.Context, post *models.SocialPost, at, now time.Time) error {
	from := post.Status
	if err := Schedule(post, at, now); err != nil {
		return err
	}
	if err := d.save(ctx, post, from, nil); err != nil {
		return err
	}
	if err := d.queue.Enqueue(ctx, PublishTask{PostID: post.ID, ProcessAt: post.ScheduledAt}); err != nil {
		return fmt.Errorf("enqueue post %d: %w", post.ID, err)
	}
	return nil
}

func (d *Dispatcher) requeue(ctx context.Context, post *models.SocialPost) error {
	attempts, err := d.attempts.ListByPost(ctx, post.ID)
	if err != nil {
		return fmt.Errorf("load attempts for post %d: %w", post.ID, err)
	}
	return d.requeueWithAttempts(ctx, post, len(attempts))
}

func (d *Dispatcher) requeueWithAttempts(ctx context.Context, post *models.SocialPost, attempt int) error {
	if err := Retry(post); err != nil {
		return err
	}
	if err := d.save(ctx, post, models.PostStatusFailed, nil); err != nil {
		return err
	}
	if err := d.queue.Enqueue(ctx, PublishTask{PostID: post.ID, Attempt: attempt}); err != nil {
		return fmt.Errorf("enqueue post %d: %w", post.ID, err)
	}
	log.Info().Int64("post_id", post.ID).Int("attempt", attempt).Msg("post re-queued")
	return nil
}

func (d *Dispatcher) ownedPost(ctx context.Context, brandID, postID int64) (*models.SocialPost, error) {
	post, err := d.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("load post %d: %w", postID, err)
	}
	if post == nil || post.BrandID != brandID {
		return nil, fmt.Errorf("%w: post %d", models.ErrNotFound, postID)
	}
	return post, nil
}

func (d *Dispatcher) requireConnected(ctx context.Context, post *models.SocialPost) error {
	ok, err := d.creds.IsConnected(ctx, post.BrandID, post.Platform)
	if err != nil {
		return fmt.Errorf("check %s connection: %w", post.Platform, err)
	}
	if !ok {
		return fmt.Errorf("%w: no active %s account for brand %d", models.ErrNotConnected, post.Platform, post.BrandID)
	}
	return nil
}

// queueDraft moves a draft to queued and saves it, so a failed publish is a
// legal transition afterwards.
func (d *Dispatcher) queueDraft(ctx context.Context, post *models.SocialPost) error {
	if post.Status != models.PostStatusDraft {
		return nil
	}
	if err := Queue(post); err != nil {
		return err
	}
	return d.save(ctx, post, models.PostStatusDraft, nil)
}

// unqueue returns a post to draft after its task could not be enqueued.
func (d *Dispatcher) unqueue(ctx context.Context, post *models.SocialPost) {
	if err := Unqueue(post); err != nil {
		log.Error().Err(err).Int64("post_id", post.ID).Msg("failed to return post to draft")
		return
	}
	if err := d.save(ctx, post, models.PostStatusQueued, nil); err != nil {
		log.Error().Err(err).Int64("post_id", post.ID).Msg("failed to return post to draft")
	}
}

// save writes a transition away from status from. With a claim, only the
// claim holder can write.
func (d *Dispatcher) save(ctx context.Context, post *models.SocialPost, from models.PostStatus, claim *time.Time) error {
	var err error
	if claim != nil {
		err = d.posts.Complete(ctx, post, from, *claim)
	} else {
		err = d.posts.UpdateState(ctx, post, from)
	}
	if err != nil {
		return fmt.Errorf("save post %d: %w", post.ID, err)
	}
	return nil
}

// publishInline claims the post, calls the publisher once and stores the
// outcome under the claim.
func (d *Dispatcher) publishInline(ctx context.Context, post *models.SocialPost) error {
	from := post.Status
	now := d.now()
	claim := now.Add(d.timeout + claimGrace).Truncate(time.Microsecond)
	if err := d.posts.Claim(ctx, post.ID, from, now, claim); err != nil {
		if errors.Is(err, models.ErrStalePost) {
			return fmt.Errorf("post %d: %w", post.ID, ErrPublishInFlight)
		}
		return fmt.Errorf("claim post %d: %w", post.ID, err)
	}

	creds, err := d.creds.GetCredentials(ctx, post.BrandID, post.Platform)
	if err != nil {
		return d.fail(ctx, post, fmt.Sprintf("%s: credentials unavailable: %v", ReasonRequestFailed, err), &claim)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	res, err := d.publisher.Publish(callCtx, post, creds)
	cancel()

	attempt := &models.PublishAttempt{
		BrandID:  post.BrandID,
		PostID:   post.ID,
		Platform: post.Platform,
	}

	var reason string
	switch {
	case err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrOutcomeUnknown)):
		reason = fmt.Sprintf("%s: %v", ReasonOutcomeUnknown, err)
	case err != nil:
		reason = fmt.Sprintf("%s: %v", ReasonRequestFailed, err)
	case !res.Success:
		msg := res.Error
		if msg == "" {
			msg = "no reason given"
		}
		reason = fmt.Sprintf("%s: %s", ReasonRejected, msg)
	}

	if reason != "" {
		attempt.ErrorMessage = reason
		d.recordAttempt(ctx, attempt)
		return d.fail(ctx, post, reason, &claim)
	}

	attempt.Success = true
	attempt.ExternalID = res.ExternalID
	d.recordAttempt(ctx, attempt)

	if err := MarkPublished(post, res.ExternalID, d.now()); err != nil {
		return err
	}
	if err := d.save(ctx, post, from, &claim); err != nil {
		return err
	}
	log.Info().Int64("post_id", post.ID).Str("platform", string(post.Platform)).Str("external_id", res.ExternalID).Msg("post published")
	return nil
}

// fail records the failure on the post. The dispatch itself succeeded, so only
// state errors are returned.
func (d *Dispatcher) fail(ctx context.Context, post *models.SocialPost, reason string, claim *time.Time) error {
	from := post.Status
	if err := MarkFailed(post, reason); err != nil {
		return err
	}
	if err := d.save(ctx, post, from, claim); err != nil {
		return err
	}
	log.Warn().Int64("post_id", post.ID).Str("platform", string(post.Platform)).Str("reason", reason).Msg("publish failed")
	return nil
}

func (d *Dispatcher) recordAttempt(ctx context.Context, a *models.PublishAttempt) {
	if _, err := d.attempts.Create(ctx, a); err != nil {
		log.Error().Err(err).Int64("post_id", a.PostID).Msg("failed to record publish attempt")
	}
}

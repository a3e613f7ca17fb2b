package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/maheshrc27/contentloop/internal/constraints"
	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/maheshrc27/contentloop/internal/publish"
	"github.com/maheshrc27/contentloop/internal/repository"
	"github.com/maheshrc27/contentloop/internal/transfer"
	"github.com/rs/zerolog/log"
)

type PostService interface {
	Create(ctx context.Context, brandID int64, pc *transfer.PostCreation) (*models.SocialPost, error)
	Get(ctx context.Context, brandID, postID int64) (*models.SocialPost, error)
	List(ctx context.Context, brandID int64, status models.PostStatus) ([]*models.SocialPost, error)
	Remove(ctx context.Context, brandID, postID int64) error
	History(ctx context.Context, brandID, postID int64) ([]*models.PublishAttempt, error)

	Publish(ctx context.Context, brandID, postID int64, mode publish.Mode) (*models.SocialPost, error)
	Schedule(ctx context.Context, brandID, postID int64, at time.Time) (*models.SocialPost, error)
	BulkSchedule(ctx context.Context, brandID int64, req *transfer.BulkScheduleRequest) ([]*models.SocialPost, error)
	Retry(ctx context.Context, brandID, postID int64) (*models.SocialPost, error)
}

type postService struct {
	pr         repository.SocialPostRepository
	ar         repository.PublishAttemptRepository
	checker    *constraints.Checker
	dispatcher *publish.Dispatcher
}

func NewPostService(
	pr repository.SocialPostRepository,
	ar repository.PublishAttemptRepository,
	checker *constraints.Checker,
	dispatcher *publish.Dispatcher) PostService {
	return &postService{
		pr:         pr,
		ar:         ar,
		checker:    checker,
		dispatcher: dispatcher,
	}
}

func (s *postService) Create(ctx context.Context, brandID int64, pc *transfer.PostCreation) (*models.SocialPost, error) {
	platform := models.Platform(pc.Platform)
	c := pc.Content()
	c.Platform = platform
	if c.IsEmpty() {
		return nil, fmt.Errorf("%w: post needs a body or media", models.ErrInvalidInput)
	}

	view := models.ContentView{Content: c}
	if reasons := s.checker.ReasonsFailed(view, platform); len(reasons) > 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidInput, strings.Join(reasons, "; "))
	}

	post := models.NewDraftPost(brandID, platform, c)
	post.AIGenerated = pc.AIGenerated
	if pc.SourcePostID != nil {
		if _, err := s.Get(ctx, brandID, *pc.SourcePostID); err != nil {
			return nil, err
		}
		post.SourcePostID = pc.SourcePostID
	}

	if _, err := s.pr.Create(ctx, nil, post); err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}
	log.Info().Int64("brand_id", brandID).Int64("post_id", post.ID).Str("platform", string(platform)).Msg("draft post created")
	return post, nil
}

func (s *postService) Get(ctx context.Context, brandID, postID int64) (*models.SocialPost, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error loading post: %w", err)
	}
	if post == nil || post.BrandID != brandID {
		return nil, fmt.Errorf("%w: post %d", models.ErrNotFound, postID)
	}
	return post, nil
}

func (s *postService) List(ctx context.Context, brandID int64, status models.PostStatus) ([]*models.SocialPost, error) {
	posts, err := s.pr.ListByBrand(ctx, brandID, status)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return posts, nil
}

// Remove deletes a post. Loop items delegating to it become dangling and are
// skipped at tick time.
func (s *postService) Remove(ctx context.Context, brandID, postID int64) error {
	if _, err := s.Get(ctx, brandID, postID); err != nil {
		return err
	}
	if err := s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("error removing post: %w", err)
	}
	return nil
}

func (s *postService) History(ctx context.Context, brandID, postID int64) ([]*models.PublishAttempt, error) {
	if _, err := s.Get(ctx, brandID, postID); err != nil {
		return nil, err
	}
	return s.ar.ListByPost(ctx, postID)
}

func (s *postService) Publish(ctx context.Context, brandID, postID int64, mode publish.Mode) (*models.SocialPost, error) {
	post, err := s.Get(ctx, brandID, postID)
	if err != nil {
		return nil, err
	}
	return s.dispatcher.Dispatch(ctx, post, mode)
}

func (s *postService) Schedule(ctx context.Context, brandID, postID int64, at time.Time) (*models.SocialPost, error) {
	return s.dispatcher.ScheduleOne(ctx, brandID, postID, at)
}

func (s *postService) BulkSchedule(ctx context.Context, brandID int64, req *transfer.BulkScheduleRequest) ([]*models.SocialPost, error) {
	interval := time.Duration(req.IntervalMinutes) * time.Minute
	return s.dispatcher.BulkSchedule(ctx, brandID, req.PostIDs, req.BaseTime, interval)
}

func (s *postService) Retry(ctx context.Context, brandID, postID int64) (*models.SocialPost, error) {
	return s.dispatcher.Retry(ctx, brandID, postID)
}

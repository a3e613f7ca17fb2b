package job

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maheshrc27/contentloop/internal/constraints"
	"github.com/maheshrc27/contentloop/internal/content"
	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/maheshrc27/contentloop/internal/publish"
	"github.com/maheshrc27/contentloop/internal/rotation"
	"github.com/maheshrc27/contentloop/internal/schedule"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultConcurrency = 5

// LoopStore is the loop side of a tick. ReserveNext must select and advance
// under the loop's row lock and commit before returning.
type LoopStore interface {
	ListActive(ctx context.Context) ([]*models.Loop, error)
	ListSchedules(ctx context.Context, loopID int64) ([]models.LoopSchedule, error)
	ReserveNext(ctx context.Context, loopID int64, at time.Time) (*rotation.Selection, error)
	MarkItemPosted(ctx context.Context, itemID int64, at time.Time) error
}

type BrandLookup interface {
	GetByID(ctx context.Context, id int64) (*models.Brand, error)
}

type PostCreator interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.SocialPost) (int64, error)
}

type ContentResolver interface {
	Resolve(ctx context.Context, item *models.LoopItem) (*content.Resolved, error)
}

type PostDispatcher interface {
	Dispatch(ctx context.Context, post *models.SocialPost, mode publish.Mode) (*models.SocialPost, error)
}

// PlatformOutcome is what happened to one platform of a fired item. Exactly
// one of Skipped, Err or Post is meaningful.
type PlatformOutcome struct {
	Platform models.Platform
	Skipped  string
	Post     *models.SocialPost
	Err      error
}

type TickResult struct {
	LoopID       int64
	Fired        bool
	AlreadyFired bool
	ItemID       int64
	Outcomes     []PlatformOutcome
}

type RunSummary struct {
	RunID  string
	Loops  int
	Fired  int
	Failed int
}

type LoopOrchestrator struct {
	loops       LoopStore
	brands      BrandLookup
	posts       PostCreator
	resolver    ContentResolver
	checker     *constraints.Checker
	dispatcher  PostDispatcher
	mode        publish.Mode
	concurrency int
}

func NewLoopOrchestrator(
	loops LoopStore,
	brands BrandLookup,
	posts PostCreator,
	resolver ContentResolver,
	checker *constraints.Checker,
	dispatcher PostDispatcher,
	mode publish.Mode,
	concurrency int) *LoopOrchestrator {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &LoopOrchestrator{
		loops:       loops,
		brands:      brands,
		posts:       posts,
		resolver:    resolver,
		checker:     checker,
		dispatcher:  dispatcher,
		mode:        mode,
		concurrency: concurrency,
	}
}

// Run ticks every active loop at now, evaluated in each brand's timezone. A
// failing loop is logged and counted; it never stops the others.
func (o *LoopOrchestrator) Run(ctx context.Context, now time.Time) (RunSummary, error) {
	summary := RunSummary{RunID: uuid.NewString()}
	logger := log.With().Str("run_id", summary.RunID).Logger()
	ctx = logger.WithContext(ctx)

	loops, err := o.loops.ListActive(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list active loops")
		return summary, err
	}
	summary.Loops = len(loops)

	locations := make(map[int64]*time.Location)
	for _, loop := range loops {
		if _, ok := locations[loop.BrandID]; ok {
			continue
		}
		brand, err := o.brands.GetByID(ctx, loop.BrandID)
		if err != nil {
			logger.Warn().Err(err).Int64("brand_id", loop.BrandID).Msg("failed to load brand, ticking in UTC")
		}
		locations[loop.BrandID] = brand.Location()
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	semaphore := make(chan struct{}, o.concurrency)

	for _, loop := range loops {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(loop *models.Loop) {
			defer wg.Done()
			defer func() { <-semaphore }()

			res, err := o.Tick(ctx, now.In(locations[loop.BrandID]), loop)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				logger.Error().Err(err).Int64("loop_id", loop.ID).Msg("loop tick failed")
				return
			}
			if res.Fired {
				summary.Fired++
			}
		}(loop)
	}
	wg.Wait()

	logger.Info().Int("loops", summary.Loops).Int("fired", summary.Fired).Int("failed", summary.Failed).Msg("loop tick run finished")
	return summary, nil
}

// Tick fires loop once if one of its schedules matches nowLocal. The cursor
// advance is committed before any post is dispatched, and every platform of
// the tick shares that single advance.
func (o *LoopOrchestrator) Tick(ctx context.Context, nowLocal time.Time, loop *models.Loop) (TickResult, error) {
	result := TickResult{LoopID: loop.ID}
	logger := ctxLogger(ctx).With().Int64("loop_id", loop.ID).Logger()

	if !loop.Active {
		return result, nil
	}
	schedules, err := o.loops.ListSchedules(ctx, loop.ID)
	if err != nil {
		return result, fmt.Errorf("list schedules: %w", err)
	}
	platforms := schedule.PlatformsFor(loop, schedule.Due(schedules, nowLocal))
	if len(platforms) == 0 {
		return result, nil
	}

	firedAt := nowLocal.UTC()
	sel, err := o.loops.ReserveNext(ctx, loop.ID, firedAt)
	if err != nil {
		return result, fmt.Errorf("reserve next item: %w", err)
	}
	if sel == nil {
		return result, nil
	}
	if sel.AlreadyFired {
		logger.Debug().Msg("loop already fired this minute")
		result.AlreadyFired = true
		return result, nil
	}
	result.Fired = true
	result.ItemID = sel.Item.ID

	// The item counts as posted with the advance, whatever each platform does.
	if err := o.loops.MarkItemPosted(ctx, sel.Item.ID, firedAt); err != nil {
		logger.Error().Err(err).Int64("item_id", sel.Item.ID).Msg("failed to record item as posted")
	}

	resolved, err := o.resolver.Resolve(ctx, sel.Item)
	if err != nil {
		return result, fmt.Errorf("resolve item %d: %w", sel.Item.ID, err)
	}

	result.Outcomes = o.fanOut(ctx, logger, &sel.Loop, resolved, platforms)
	return result, nil
}

func (o *LoopOrchestrator) fanOut(ctx context.Context, logger zerolog.Logger, loop *models.Loop, resolved *content.Resolved, platforms []models.Platform) []PlatformOutcome {
	outcomes := make([]PlatformOutcome, len(platforms))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, o.concurrency)

	for i, platform := range platforms {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(i int, platform models.Platform) {
			defer wg.Done()
			defer func() { <-semaphore }()

			out := PlatformOutcome{Platform: platform}
			if reasons := o.checker.ReasonsFailed(resolved.View, platform); len(reasons) > 0 {
				out.Skipped = reasons[0]
				logger.Info().Str("platform", string(platform)).Str("reason", out.Skipped).Msg("platform skipped for loop item")
				outcomes[i] = out
				return
			}

			post, err := o.materialise(ctx, loop, resolved, platform)
			if err == nil {
				post, err = o.dispatcher.Dispatch(ctx, post, o.mode)
			}
			if err != nil {
				out.Err = err
				logger.Error().Err(err).Str("platform", string(platform)).Msg("failed to dispatch loop item")
			} else {
				out.Post = post
				logger.Info().Str("platform", string(platform)).Int64("post_id", post.ID).Str("status", string(post.Status)).Msg("loop item dispatched")
			}
			outcomes[i] = out
		}(i, platform)
	}
	wg.Wait()
	return outcomes
}

// materialise reuses the delegated post when it targets platform and can still
// publish; otherwise it stores a draft copy of the resolved content.
func (o *LoopOrchestrator) materialise(ctx context.Context, loop *models.Loop, resolved *content.Resolved, platform models.Platform) (*models.SocialPost, error) {
	if d := resolved.Delegate; d != nil && d.Platform == platform && publish.CanPublish(d) {
		return d, nil
	}

	post := models.NewDraftPost(loop.BrandID, platform, resolved.View.Content)
	if resolved.Delegate != nil {
		id := resolved.Delegate.ID
		post.SourcePostID = &id
	}
	if _, err := o.posts.Create(ctx, nil, post); err != nil {
		return nil, fmt.Errorf("create %s post: %w", platform, err)
	}
	return post, nil
}

func ctxLogger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}

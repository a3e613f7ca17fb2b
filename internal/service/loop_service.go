package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/maheshrc27/contentloop/internal/constraints"
	"github.com/maheshrc27/contentloop/internal/content"
	"github.com/maheshrc27/contentloop/internal/importer"
	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/maheshrc27/contentloop/internal/repository"
	"github.com/maheshrc27/contentloop/internal/rotation"
	"github.com/maheshrc27/contentloop/internal/schedule"
	"github.com/maheshrc27/contentloop/internal/transfer"
	"github.com/rs/zerolog/log"
)

type LoopService interface {
	Create(ctx context.Context, brandID int64, req *transfer.LoopCreation) (*models.Loop, error)
	Get(ctx context.Context, brandID, loopID int64) (*transfer.LoopDetail, error)
	List(ctx context.Context, brandID int64) ([]*models.Loop, error)
	Update(ctx context.Context, brandID, loopID int64, req *transfer.LoopUpdate) (*models.Loop, error)
	Delete(ctx context.Context, brandID, loopID int64) error

	AddItem(ctx context.Context, brandID, loopID int64, req *transfer.ItemCreation) (*models.LoopItem, error)
	UpdateItemContent(ctx context.Context, brandID, loopID, itemID int64, req *transfer.ContentInput) (*models.LoopItem, error)
	AttachMedia(ctx context.Context, brandID, loopID, itemID int64, ref models.MediaRef) (*models.LoopItem, error)
	RemoveItem(ctx context.Context, brandID, loopID, itemID int64) error
	Reorder(ctx context.Context, brandID, loopID int64, order []int64) ([]*models.LoopItem, error)
	ListItems(ctx context.Context, brandID, loopID int64) ([]*transfer.ItemView, error)
	PruneDangling(ctx context.Context, brandID, loopID int64) (int, error)
	ReplaceSchedules(ctx context.Context, brandID, loopID int64, schedules []models.LoopSchedule) ([]models.LoopSchedule, error)
	ImportCSV(ctx context.Context, brandID, loopID int64, r io.Reader) (*transfer.ImportResult, error)
	ImportFeed(ctx context.Context, brandID, loopID int64, req *transfer.ImportFeedRequest) (*transfer.ImportResult, error)

	ListActive(ctx context.Context) ([]*models.Loop, error)
	ListSchedules(ctx context.Context, loopID int64) ([]models.LoopSchedule, error)
	ReserveNext(ctx context.Context, loopID int64, at time.Time) (*rotation.Selection, error)
	MarkItemPosted(ctx context.Context, itemID int64, at time.Time) error
}

type loopService struct {
	db        *sql.DB
	loops     repository.LoopRepository
	items     repository.LoopItemRepository
	schedules repository.LoopScheduleRepository
	posts     repository.SocialPostRepository
	brands    repository.BrandRepository
	resolver  *content.Resolver
	checker   *constraints.Checker
	engine    *rotation.Engine
	feeds     *importer.FeedImporter
	policy    rotation.ReorderPolicy
}

func NewLoopService(
	db *sql.DB,
	loops repository.LoopRepository,
	items repository.LoopItemRepository,
	schedules repository.LoopScheduleRepository,
	posts repository.SocialPostRepository,
	brands repository.BrandRepository,
	checker *constraints.Checker,
	engine *rotation.Engine,
	feeds *importer.FeedImporter) LoopService {
	return &loopService{
		db:        db,
		loops:     loops,
		items:     items,
		schedules: schedules,
		posts:     posts,
		brands:    brands,
		resolver:  content.NewResolver(posts),
		checker:   checker,
		engine:    engine,
		feeds:     feeds,
		policy:    rotation.IgnoreUnknown,
	}
}

func (s *loopService) Create(ctx context.Context, brandID int64, req *transfer.LoopCreation) (*models.Loop, error) {
	loop := &models.Loop{
		BrandID:   brandID,
		Name:      req.Name,
		Active:    true,
		Platforms: dedupePlatforms(models.ParsePlatforms(req.Platforms)),
	}
	if req.Active != nil {
		loop.Active = *req.Active
	}
	if _, err := s.loops.Create(ctx, nil, loop); err != nil {
		return nil, fmt.Errorf("error creating loop: %w", err)
	}
	log.Info().Int64("brand_id", brandID).Int64("loop_id", loop.ID).Msg("loop created")
	return loop, nil
}

func (s *loopService) Get(ctx context.Context, brandID, loopID int64) (*transfer.LoopDetail, error) {
	loop, err := s.ownedLoop(ctx, nil, brandID, loopID)
	if err != nil {
		return nil, err
	}
	views, err := s.itemViews(ctx, loop)
	if err != nil {
		return nil, err
	}
	schedules, err := s.schedules.ListByLoop(ctx, loopID)
	if err != nil {
		return nil, fmt.Errorf("error listing schedules: %w", err)
	}

	detail := &transfer.LoopDetail{Loop: loop, Items: views, Schedules: schedules}
	brand, err := s.brands.GetByID(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("error loading brand: %w", err)
	}
	if loop.Active && len(views) > 0 {
		if next, ok := schedule.NextFire(schedules, time.Now().In(brand.Location())); ok {
			detail.NextFire = &next
		}
	}
	return detail, nil
}

func (s *loopService) List(ctx context.Context, brandID int64) ([]*models.Loop, error) {
	loops, err := s.loops.ListByBrand(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("error listing loops: %w", err)
	}
	return loops, nil
}

func (s *loopService) Update(ctx context.Context, brandID, loopID int64, req *transfer.LoopUpdate) (*models.Loop, error) {
	var loop *models.Loop
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		loop, err = s.lockedLoop(ctx, tx, brandID, loopID)
		if err != nil {
			return err
		}
		if req.Name != nil {
			loop.Name = *req.Name
		}
		if req.Active != nil {
			loop.Active = *req.Active
		}
		if req.Platforms != nil {
			loop.Platforms = dedupePlatforms(models.ParsePlatforms(req.Platforms))
		}
		return s.loops.Update(ctx, tx, loop)
	})
	if err != nil {
		return nil, err
	}
	return loop, nil
}

func (s *loopService) Delete(ctx context.Context, brandID, loopID int64) error {
	if _, err := s.ownedLoop(ctx, nil, brandID, loopID); err != nil {
		return err
	}
	if err := s.loops.Delete(ctx, loopID); err != nil {
		return fmt.Errorf("error deleting loop: %w", err)
	}
	log.Info().Int64("brand_id", brandID).Int64("loop_id", loopID).Msg("loop deleted")
	return nil
}

func (s *loopService) AddItem(ctx context.Context, brandID, loopID int64, req *transfer.ItemCreation) (*models.LoopItem, error) {
	item := &models.LoopItem{LoopID: loopID}
	if req.SocialPostID != nil {
		post, err := s.posts.GetByID(ctx, *req.SocialPostID)
		if err != nil {
			return nil, fmt.Errorf("error loading social post: %w", err)
		}
		if post == nil || post.BrandID != brandID {
			return nil, fmt.Errorf("%w: social post %d", models.ErrNotFound, *req.SocialPostID)
		}
		item.SocialPostID = req.SocialPostID
		item.Format = post.Format
	} else {
		c := req.Content()
		if c.IsEmpty() {
			return nil, fmt.Errorf("%w: item needs a body or media", models.ErrInvalidInput)
		}
		if err := item.SetContent(c); err != nil {
			return nil, err
		}
	}

	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := s.lockedLoop(ctx, tx, brandID, loopID); err != nil {
			return err
		}
		items, err := s.items.ListByLoop(ctx, tx, loopID)
		if err != nil {
			return err
		}
		item.Position = rotation.NextPosition(items)
		_, err = s.items.Create(ctx, tx, item)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *loopService) UpdateItemContent(ctx context.Context, brandID, loopID, itemID int64, req *transfer.ContentInput) (*models.LoopItem, error) {
	c := req.Content()
	if c.IsEmpty() {
		return nil, fmt.Errorf("%w: item needs a body or media", models.ErrInvalidInput)
	}
	return s.editItem(ctx, brandID, loopID, itemID, func(item *models.LoopItem) error {
		return item.SetContent(c)
	})
}

func (s *loopService) AttachMedia(ctx context.Context, brandID, loopID, itemID int64, ref models.MediaRef) (*models.LoopItem, error) {
	return s.editItem(ctx, brandID, loopID, itemID, func(item *models.LoopItem) error {
		src, ok := item.Source().(models.Standalone)
		if !ok {
			return models.ErrItemReadOnly
		}
		c := src.Content
		c.Media = append(append(models.MediaList{}, c.Media...), ref)
		if ref.Kind == models.MediaImage && c.Format == models.FormatText {
			c.Format = models.FormatImage
		}
		return item.SetContent(c)
	})
}

func (s *loopService) editItem(ctx context.Context, brandID, loopID, itemID int64, edit func(*models.LoopItem) error) (*models.LoopItem, error) {
	if _, err := s.ownedLoop(ctx, nil, brandID, loopID); err != nil {
		return nil, err
	}
	item, err := s.items.GetByID(ctx, nil, itemID)
	if err != nil {
		return nil, fmt.Errorf("error loading item: %w", err)
	}
	if item == nil || item.LoopID != loopID {
		return nil, fmt.Errorf("%w: item %d", models.ErrNotFound, itemID)
	}
	if err := edit(item); err != nil {
		return nil, err
	}
	if err := s.items.UpdateContent(ctx, nil, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *loopService) RemoveItem(ctx context.Context, brandID, loopID, itemID int64) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		loop, err := s.lockedLoop(ctx, tx, brandID, loopID)
		if err != nil {
			return err
		}
		items, err := s.items.ListByLoop(ctx, tx, loopID)
		if err != nil {
			return err
		}
		removed, remaining, err := rotation.Remove(loop, items, itemID)
		if err != nil {
			return err
		}
		return s.persistRemoval(ctx, tx, loop, []*models.LoopItem{removed}, remaining)
	})
}

func (s *loopService) persistRemoval(ctx context.Context, tx *sql.Tx, loop *models.Loop, removed, remaining []*models.LoopItem) error {
	for _, item := range removed {
		if err := s.items.Delete(ctx, tx, item.ID); err != nil {
			return err
		}
	}
	if err := s.items.UpdatePositions(ctx, tx, remaining); err != nil {
		return err
	}
	return s.loops.UpdateRotation(ctx, tx, loop)
}

func (s *loopService) Reorder(ctx context.Context, brandID, loopID int64, order []int64) ([]*models.LoopItem, error) {
	var ordered []*models.LoopItem
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := s.lockedLoop(ctx, tx, brandID, loopID); err != nil {
			return err
		}
		items, err := s.items.ListByLoop(ctx, tx, loopID)
		if err != nil {
			return err
		}
		ordered, err = rotation.Reorder(items, order, s.policy)
		if err != nil {
			return err
		}
		return s.items.UpdatePositions(ctx, tx, ordered)
	})
	if err != nil {
		return nil, err
	}
	return ordered, nil
}

func (s *loopService) ListItems(ctx context.Context, brandID, loopID int64) ([]*transfer.ItemView, error) {
	loop, err := s.ownedLoop(ctx, nil, brandID, loopID)
	if err != nil {
		return nil, err
	}
	return s.itemViews(ctx, loop)
}

func (s *loopService) itemViews(ctx context.Context, loop *models.Loop) ([]*transfer.ItemView, error) {
	items, err := s.items.ListByLoop(ctx, nil, loop.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing items: %w", err)
	}
	resolved, err := s.resolver.ResolveAll(ctx, items)
	if err != nil {
		return nil, err
	}

	views := make([]*transfer.ItemView, 0, len(items))
	for i, item := range items {
		view := &transfer.ItemView{LoopItem: item, Content: resolved[i].View}
		if d := s.checker.DisqualifiedPlatforms(resolved[i].View, loop.Platforms); len(d) > 0 {
			view.Disqualified = d
		}
		views = append(views, view)
	}
	return views, nil
}

// PruneDangling removes every item whose delegated post no longer exists.
func (s *loopService) PruneDangling(ctx context.Context, brandID, loopID int64) (int, error) {
	pruned := 0
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		loop, err := s.lockedLoop(ctx, tx, brandID, loopID)
		if err != nil {
			return err
		}
		items, err := s.items.ListByLoop(ctx, tx, loopID)
		if err != nil {
			return err
		}

		var removed []*models.LoopItem
		for _, item := range append([]*models.LoopItem(nil), items...) {
			if !item.IsDelegated() {
				continue
			}
			res, err := s.resolver.Resolve(ctx, item)
			if err != nil {
				return err
			}
			if !res.View.Dangling {
				continue
			}
			gone, remaining, err := rotation.Remove(loop, items, item.ID)
			if err != nil {
				return err
			}
			removed = append(removed, gone)
			items = remaining
		}
		if len(removed) == 0 {
			return nil
		}
		pruned = len(removed)
		return s.persistRemoval(ctx, tx, loop, removed, items)
	})
	if err != nil {
		return 0, err
	}
	if pruned > 0 {
		log.Info().Int64("loop_id", loopID).Int("pruned", pruned).Msg("pruned dangling loop items")
	}
	return pruned, nil
}

func (s *loopService) ReplaceSchedules(ctx context.Context, brandID, loopID int64, schedules []models.LoopSchedule) ([]models.LoopSchedule, error) {
	for i := range schedules {
		if err := schedules[i].Validate(); err != nil {
			return nil, err
		}
	}

	var out []models.LoopSchedule
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := s.lockedLoop(ctx, tx, brandID, loopID); err != nil {
			return err
		}
		var err error
		out, err = s.schedules.Replace(ctx, tx, loopID, schedules)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *loopService) ImportCSV(ctx context.Context, brandID, loopID int64, r io.Reader) (*transfer.ImportResult, error) {
	parsed, err := importer.ParseCSV(r)
	if err != nil {
		return nil, err
	}
	return s.importContents(ctx, brandID, loopID, parsed)
}

func (s *loopService) ImportFeed(ctx context.Context, brandID, loopID int64, req *transfer.ImportFeedRequest) (*transfer.ImportResult, error) {
	if _, err := s.ownedLoop(ctx, nil, brandID, loopID); err != nil {
		return nil, err
	}
	parsed, err := s.feeds.Fetch(ctx, req.URL, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	return s.importContents(ctx, brandID, loopID, parsed)
}

// importContents appends every parsed item to the loop in one transaction.
func (s *loopService) importContents(ctx context.Context, brandID, loopID int64, parsed *importer.Result) (*transfer.ImportResult, error) {
	result := &transfer.ImportResult{Skipped: parsed.Skipped, Items: []*models.LoopItem{}}
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := s.lockedLoop(ctx, tx, brandID, loopID); err != nil {
			return err
		}
		items, err := s.items.ListByLoop(ctx, tx, loopID)
		if err != nil {
			return err
		}
		next := rotation.NextPosition(items)
		for _, c := range parsed.Contents {
			item := &models.LoopItem{LoopID: loopID, Position: next}
			if err := item.SetContent(c); err != nil {
				return err
			}
			if _, err := s.items.Create(ctx, tx, item); err != nil {
				return err
			}
			result.Items = append(result.Items, item)
			next++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Imported = len(result.Items)
	log.Info().Int64("loop_id", loopID).Int("imported", result.Imported).Int("skipped", result.Skipped).Msg("loop items imported")
	return result, nil
}

func (s *loopService) ListActive(ctx context.Context) ([]*models.Loop, error) {
	return s.loops.ListActive(ctx)
}

func (s *loopService) ListSchedules(ctx context.Context, loopID int64) ([]models.LoopSchedule, error) {
	return s.schedules.ListByLoop(ctx, loopID)
}

// ReserveNext selects the loop's next item and advances the cursor under a
// row lock. It returns nil when the loop is inactive or empty, and a
// selection marked AlreadyFired when another tick advanced it this minute.
func (s *loopService) ReserveNext(ctx context.Context, loopID int64, at time.Time) (*rotation.Selection, error) {
	var sel *rotation.Selection
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		loop, err := s.loops.GetForUpdate(ctx, tx, loopID)
		if err != nil {
			return err
		}
		if loop == nil {
			return fmt.Errorf("%w: loop %d", models.ErrNotFound, loopID)
		}
		items, err := s.items.ListByLoop(ctx, tx, loopID)
		if err != nil {
			return err
		}
		sel = s.engine.Select(loop, items, at)
		if sel == nil || sel.AlreadyFired {
			return nil
		}
		return s.loops.UpdateRotation(ctx, tx, loop)
	})
	if err != nil {
		return nil, err
	}
	return sel, nil
}

func (s *loopService) MarkItemPosted(ctx context.Context, itemID int64, at time.Time) error {
	return s.items.IncrementPosted(ctx, itemID, at)
}

func (s *loopService) ownedLoop(ctx context.Context, tx *sql.Tx, brandID, loopID int64) (*models.Loop, error) {
	loop, err := s.loops.GetByID(ctx, tx, loopID)
	if err != nil {
		return nil, fmt.Errorf("error loading loop: %w", err)
	}
	if loop == nil || loop.BrandID != brandID {
		return nil, fmt.Errorf("%w: loop %d", models.ErrNotFound, loopID)
	}
	return loop, nil
}

func (s *loopService) lockedLoop(ctx context.Context, tx *sql.Tx, brandID, loopID int64) (*models.Loop, error) {
	loop, err := s.loops.GetForUpdate(ctx, tx, loopID)
	if err != nil {
		return nil, fmt.Errorf("error locking loop: %w", err)
	}
	if loop == nil || loop.BrandID != brandID {
		return nil, fmt.Errorf("%w: loop %d", models.ErrNotFound, loopID)
	}
	return loop, nil
}

func dedupePlatforms(platforms []models.Platform) []models.Platform {
	seen := make(map[models.Platform]struct{}, len(platforms))
	out := make([]models.Platform, 0, len(platforms))
	for _, p := range platforms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

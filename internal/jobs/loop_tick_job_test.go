package job

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/maheshrc27/contentloop/internal/constraints"
	"github.com/maheshrc27/contentloop/internal/content"
	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/maheshrc27/contentloop/internal/publish"
	"github.com/maheshrc27/contentloop/internal/rotation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday 2 March 2026, 09:00 UTC.
var monday9 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeLoopStore struct {
	mu          sync.Mutex
	engine      *rotation.Engine
	loops       map[int64]*models.Loop
	items       map[int64][]*models.LoopItem
	schedules   map[int64][]models.LoopSchedule
	scheduleErr map[int64]error
	posted      []int64
	reserves    int
}

func newFakeLoopStore() *fakeLoopStore {
	return &fakeLoopStore{
		engine:      rotation.NewEngine(),
		loops:       map[int64]*models.Loop{},
		items:       map[int64][]*models.LoopItem{},
		schedules:   map[int64][]models.LoopSchedule{},
		scheduleErr: map[int64]error{},
	}
}

func (s *fakeLoopStore) add(loop *models.Loop, items []*models.LoopItem, schedules ...models.LoopSchedule) {
	s.loops[loop.ID] = loop
	s.items[loop.ID] = items
	s.schedules[loop.ID] = schedules
}

func (s *fakeLoopStore) ListActive(context.Context) ([]*models.Loop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Loop
	for _, l := range s.loops {
		if l.Active {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeLoopStore) ListSchedules(_ context.Context, loopID int64) ([]models.LoopSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.scheduleErr[loopID]; err != nil {
		return nil, err
	}
	return s.schedules[loopID], nil
}

func (s *fakeLoopStore) ReserveNext(_ context.Context, loopID int64, at time.Time) (*rotation.Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserves++
	loop, ok := s.loops[loopID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return s.engine.Select(loop, s.items[loopID], at), nil
}

func (s *fakeLoopStore) MarkItemPosted(_ context.Context, itemID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posted = append(s.posted, itemID)
	for _, items := range s.items {
		for _, item := range items {
			if item.ID == itemID {
				item.RecordPosted(at)
			}
		}
	}
	return nil
}

type fakeBrands map[int64]*models.Brand

func (f fakeBrands) GetByID(_ context.Context, id int64) (*models.Brand, error) {
	return f[id], nil
}

type fakePosts struct {
	mu      sync.Mutex
	nextID  int64
	posts   map[int64]*models.SocialPost
	created []*models.SocialPost
}

func newFakePosts(existing ...*models.SocialPost) *fakePosts {
	f := &fakePosts{nextID: 100, posts: map[int64]*models.SocialPost{}}
	for _, p := range existing {
		f.posts[p.ID] = p
	}
	return f
}

func (f *fakePosts) Create(_ context.Context, _ *sql.Tx, post *models.SocialPost) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	post.ID = f.nextID
	f.posts[post.ID] = post
	f.created = append(f.created, post)
	return post.ID, nil
}

func (f *fakePosts) GetByID(_ context.Context, id int64) (*models.SocialPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

type fakeDispatcher struct {
	mu         sync.Mutex
	dispatched []*models.SocialPost
	fail       map[models.Platform]error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, post *models.SocialPost, mode publish.Mode) (*models.SocialPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[post.Platform]; err != nil {
		return nil, err
	}
	if err := publish.Queue(post); err != nil && post.Status != models.PostStatusQueued {
		return nil, err
	}
	f.dispatched = append(f.dispatched, post)
	return post, nil
}

func (f *fakeDispatcher) platforms() []models.Platform {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Platform
	for _, p := range f.dispatched {
		out = append(out, p.Platform)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type harness struct {
	store      *fakeLoopStore
	posts      *fakePosts
	dispatcher *fakeDispatcher
	orch       *LoopOrchestrator
}

func newHarness(brands fakeBrands, existing ...*models.SocialPost) *harness {
	h := &harness{
		store:      newFakeLoopStore(),
		posts:      newFakePosts(existing...),
		dispatcher: &fakeDispatcher{fail: map[models.Platform]error{}},
	}
	h.orch = NewLoopOrchestrator(h.store, brands, h.posts, content.NewResolver(h.posts),
		constraints.Default(), h.dispatcher, publish.ModeAsync, 2)
	return h
}

func textItem(id int64, pos int, body string) *models.LoopItem {
	return &models.LoopItem{ID: id, LoopID: 1, Position: pos, Body: body, Format: models.FormatText}
}

func mondayAt9() models.LoopSchedule {
	return models.LoopSchedule{LoopID: 1, DayOfWeek: time.Monday, TimeOfDay: "09:00"}
}

func TestTickFiresItemAtCursorAndWraps(t *testing.T) {
	h := newHarness(fakeBrands{})
	loop := &models.Loop{ID: 1, BrandID: 1, Active: true, CurrentPosition: 2,
		Platforms: []models.Platform{models.PlatformTwitter, models.PlatformLinkedIn}}
	a, b, c := textItem(11, 0, "A"), textItem(12, 1, "B"), textItem(13, 2, "C")
	h.store.add(loop, []*models.LoopItem{a, b, c}, mondayAt9())

	res, err := h.orch.Tick(context.Background(), monday9, loop)
	require.NoError(t, err)
	assert.True(t, res.Fired)
	assert.Equal(t, c.ID, res.ItemID)
	require.Len(t, res.Outcomes, 2)

	stored := h.store.loops[1]
	assert.Equal(t, 0, stored.CurrentPosition)
	assert.Equal(t, 1, stored.TotalCyclesCompleted)
	require.NotNil(t, stored.LastFiredAt)
	assert.True(t, monday9.Equal(*stored.LastFiredAt))

	assert.Equal(t, []models.Platform{models.PlatformLinkedIn, models.PlatformTwitter}, h.dispatcher.platforms())
	require.Len(t, h.posts.created, 2)
	for _, p := range h.posts.created {
		assert.Equal(t, "C", p.Body)
		assert.Equal(t, int64(1), p.BrandID)
		assert.Nil(t, p.SourcePostID)
	}
	assert.Equal(t, []int64{c.ID}, h.store.posted)
	assert.Equal(t, 1, c.TimesPosted)

	again, err := h.orch.Tick(context.Background(), monday9.Add(20*time.Second), loop)
	require.NoError(t, err)
	assert.True(t, again.AlreadyFired)
	assert.False(t, again.Fired)
	assert.Equal(t, 0, h.store.loops[1].CurrentPosition)
	assert.Len(t, h.dispatcher.dispatched, 2)
}

func TestTickSkipsPlatformThatNeedsMedia(t *testing.T) {
	h := newHarness(fakeBrands{})
	loop := &models.Loop{ID: 1, BrandID: 1, Active: true,
		Platforms: []models.Platform{models.PlatformInstagram, models.PlatformTwitter}}
	h.store.add(loop, []*models.LoopItem{textItem(11, 0, "text only")}, mondayAt9())

	res, err := h.orch.Tick(context.Background(), monday9, loop)
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 2)

	assert.Equal(t, models.PlatformInstagram, res.Outcomes[0].Platform)
	assert.Equal(t, constraints.ReasonMediaRequired, res.Outcomes[0].Skipped)
	assert.Nil(t, res.Outcomes[0].Post)
	assert.Empty(t, res.Outcomes[1].Skipped)
	require.NotNil(t, res.Outcomes[1].Post)

	assert.Equal(t, []models.Platform{models.PlatformTwitter}, h.dispatcher.platforms())
	assert.Equal(t, []int64{11}, h.store.posted)
}

func TestTickNotDueDoesNotAdvance(t *testing.T) {
	h := newHarness(fakeBrands{})
	loop := &models.Loop{ID: 1, BrandID: 1, Active: true, Platforms: []models.Platform{models.PlatformTwitter}}
	h.store.add(loop, []*models.LoopItem{textItem(11, 0, "A")}, mondayAt9())

	res, err := h.orch.Tick(context.Background(), monday9.Add(time.Minute), loop)
	require.NoError(t, err)
	assert.False(t, res.Fired)
	assert.Zero(t, h.store.reserves)

	inactive := &models.Loop{ID: 1, BrandID: 1, Active: false}
	res, err = h.orch.Tick(context.Background(), monday9, inactive)
	require.NoError(t, err)
	assert.False(t, res.Fired)
	assert.Zero(t, h.store.reserves)
}

func TestTickEmptyLoop(t *testing.T) {
	h := newHarness(fakeBrands{})
	loop := &models.Loop{ID: 1, BrandID: 1, Active: true, Platforms: []models.Platform{models.PlatformTwitter}}
	h.store.add(loop, nil, mondayAt9())

	res, err := h.orch.Tick(context.Background(), monday9, loop)
	require.NoError(t, err)
	assert.False(t, res.Fired)
	assert.Empty(t, h.dispatcher.dispatched)
}

func TestTickScheduleOverridesPlatforms(t *testing.T) {
	h := newHarness(fakeBrands{})
	loop := &models.Loop{ID: 1, BrandID: 1, Active: true,
		Platforms: []models.Platform{models.PlatformTwitter, models.PlatformLinkedIn}}
	threads := models.PlatformThreads
	twitter := models.PlatformTwitter
	h.store.add(loop, []*models.LoopItem{textItem(11, 0, "A")},
		models.LoopSchedule{DayOfWeek: time.Monday, TimeOfDay: "09:00", Platform: &threads},
		models.LoopSchedule{DayOfWeek: time.Monday, TimeOfDay: "09:00", Platform: &twitter},
		models.LoopSchedule{DayOfWeek: time.Monday, TimeOfDay: "09:00", Platform: &threads},
	)

	res, err := h.orch.Tick(context.Background(), monday9, loop)
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 2)
	assert.Equal(t, models.PlatformThreads, res.Outcomes[0].Platform)
	assert.Equal(t, models.PlatformTwitter, res.Outcomes[1].Platform)
	assert.Equal(t, 1, h.store.reserves)
}

func TestTickReusesDelegatedPost(t *testing.T) {
	delegate := &models.SocialPost{ID: 7, BrandID: 1, Platform: models.PlatformTwitter,
		Body: "delegated", Format: models.FormatText, Status: models.PostStatusDraft}
	h := newHarness(fakeBrands{}, delegate)
	loop := &models.Loop{ID: 1, BrandID: 1, Active: true,
		Platforms: []models.Platform{models.PlatformTwitter, models.PlatformLinkedIn}}
	postID := int64(7)
	h.store.add(loop, []*models.LoopItem{{ID: 11, LoopID: 1, Position: 0, SocialPostID: &postID}}, mondayAt9())

	res, err := h.orch.Tick(context.Background(), monday9, loop)
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 2)
	assert.Equal(t, int64(7), res.Outcomes[0].Post.ID, "twitter reuses the delegated post")

	require.Len(t, h.posts.created, 1)
	copied := h.posts.created[0]
	assert.Equal(t, models.PlatformLinkedIn, copied.Platform)
	assert.Equal(t, "delegated", copied.Body)
	require.NotNil(t, copied.SourcePostID)
	assert.Equal(t, int64(7), *copied.SourcePostID)
}

func TestTickPublishedDelegateGetsCopied(t *testing.T) {
	ext := "x-1"
	at := monday9.Add(-24 * time.Hour)
	delegate := &models.SocialPost{ID: 7, BrandID: 1, Platform: models.PlatformTwitter,
		Body: "evergreen", Format: models.FormatText, Status: models.PostStatusPublished,
		ExternalID: &ext, PublishedAt: &at}
	h := newHarness(fakeBrands{}, delegate)
	loop := &models.Loop{ID: 1, BrandID: 1, Active: true, Platforms: []models.Platform{models.PlatformTwitter}}
	postID := int64(7)
	h.store.add(loop, []*models.LoopItem{{ID: 11, LoopID: 1, SocialPostID: &postID}}, mondayAt9())

	res, err := h.orch.Tick(context.Background(), monday9, loop)
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 1)
	assert.NotEqual(t, int64(7), res.Outcomes[0].Post.ID)
	require.Len(t, h.posts.created, 1)
	copied := h.posts.created[0]
	assert.Equal(t, "evergreen", copied.Body)
	assert.Equal(t, models.PostStatusQueued, copied.Status)
	require.NotNil(t, copied.SourcePostID)
	assert.Equal(t, int64(7), *copied.SourcePostID)
}

func TestTickDanglingItemSkipsEveryPlatform(t *testing.T) {
	h := newHarness(fakeBrands{})
	loop := &models.Loop{ID: 1, BrandID: 1, Active: true,
		Platforms: []models.Platform{models.PlatformTwitter, models.PlatformLinkedIn}}
	gone := int64(404)
	h.store.add(loop, []*models.LoopItem{{ID: 11, LoopID: 1, SocialPostID: &gone}}, mondayAt9())

	res, err := h.orch.Tick(context.Background(), monday9, loop)
	require.NoError(t, err)
	assert.True(t, res.Fired)
	for _, out := range res.Outcomes {
		assert.Equal(t, constraints.ReasonDangling, out.Skipped)
	}
	assert.Empty(t, h.dispatcher.dispatched)
	// The advance still records the item, so a skipped item is not retried forever.
	assert.Equal(t, []int64{11}, h.store.posted)
}

func TestTickDispatchFailureIsIsolated(t *testing.T) {
	h := newHarness(fakeBrands{})
	h.dispatcher.fail[models.PlatformTwitter] = models.ErrNotConnected
	loop := &models.Loop{ID: 1, BrandID: 1, Active: true,
		Platforms: []models.Platform{models.PlatformTwitter, models.PlatformLinkedIn}}
	h.store.add(loop, []*models.LoopItem{textItem(11, 0, "A")}, mondayAt9())

	res, err := h.orch.Tick(context.Background(), monday9, loop)
	require.NoError(t, err)
	assert.ErrorIs(t, res.Outcomes[0].Err, models.ErrNotConnected)
	assert.NoError(t, res.Outcomes[1].Err)
	assert.Equal(t, []int64{11}, h.store.posted)
}

func TestRunUsesBrandTimezoneAndIsolatesFailures(t *testing.T) {
	brands := fakeBrands{
		1: {ID: 1, Timezone: "Asia/Tokyo"},
		2: {ID: 2, Timezone: "UTC"},
	}
	h := newHarness(brands)

	tokyo := &models.Loop{ID: 1, BrandID: 1, Active: true, Platforms: []models.Platform{models.PlatformTwitter}}
	h.store.add(tokyo, []*models.LoopItem{textItem(11, 0, "konnichiwa")}, mondayAt9())

	utc := &models.Loop{ID: 2, BrandID: 2, Active: true, Platforms: []models.Platform{models.PlatformTwitter}}
	h.store.add(utc, []*models.LoopItem{{ID: 21, LoopID: 2, Body: "hello", Format: models.FormatText}},
		models.LoopSchedule{LoopID: 2, DayOfWeek: time.Monday, TimeOfDay: "09:00"})

	broken := &models.Loop{ID: 3, BrandID: 2, Active: true, Platforms: []models.Platform{models.PlatformTwitter}}
	h.store.add(broken, nil)
	h.store.scheduleErr[3] = errors.New("db down")

	// 00:00 UTC is 09:00 in Tokyo.
	summary, err := h.orch.Run(context.Background(), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 3, summary.Loops)
	assert.Equal(t, 1, summary.Fired)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []int64{11}, h.store.posted)
}

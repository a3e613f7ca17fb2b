package publish

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/maheshrc27/contentloop/internal/models"
)

type fakePosts struct {
	mu      sync.Mutex
	posts   map[int64]*models.SocialPost
	claims  map[int64]time.Time
	updates int
}

func newFakePosts(posts ...*models.SocialPost) *fakePosts {
	f := &fakePosts{posts: make(map[int64]*models.SocialPost), claims: make(map[int64]time.Time)}
	for _, p := range posts {
		cp := *p
		f.posts[p.ID] = &cp
	}
	return f
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

func (f *fakePosts) ListByStatus(_ context.Context, status models.PostStatus) ([]*models.SocialPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.SocialPost
	for _, p := range f.posts {
		if p.Status == status {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Claims never expire here; tests release them through Complete.
func (f *fakePosts) UpdateState(_ context.Context, post *models.SocialPost, from models.PostStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.posts[post.ID]
	if _, claimed := f.claims[post.ID]; !ok || claimed || stored.Status != from {
		return models.ErrStalePost
	}
	f.write(post)
	return nil
}

func (f *fakePosts) Claim(_ context.Context, id int64, from models.PostStatus, _, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.posts[id]
	if _, claimed := f.claims[id]; !ok || claimed || stored.Status != from {
		return models.ErrStalePost
	}
	f.claims[id] = until
	return nil
}

func (f *fakePosts) Complete(_ context.Context, post *models.SocialPost, from models.PostStatus, claim time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.posts[post.ID]
	held, claimed := f.claims[post.ID]
	if !ok || !claimed || !held.Equal(claim) || stored.Status != from {
		return models.ErrStalePost
	}
	delete(f.claims, post.ID)
	f.write(post)
	return nil
}

func (f *fakePosts) write(post *models.SocialPost) {
	f.updates++
	cp := *post
	f.posts[post.ID] = &cp
}

func (f *fakePosts) get(id int64) *models.SocialPost {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts[id]
}

type fakeAttempts struct {
	mu       sync.Mutex
	attempts []*models.PublishAttempt
}

func (f *fakeAttempts) Create(_ context.Context, a *models.PublishAttempt) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = int64(len(f.attempts) + 1)
	f.attempts = append(f.attempts, a)
	return a.ID, nil
}

func (f *fakeAttempts) ListByPost(_ context.Context, postID int64) ([]*models.PublishAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.PublishAttempt
	for _, a := range f.attempts {
		if a.PostID == postID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeCreds struct {
	disconnected map[models.Platform]bool
}

func (f *fakeCreds) IsConnected(_ context.Context, _ int64, p models.Platform) (bool, error) {
	return !f.disconnected[p], nil
}

func (f *fakeCreds) GetCredentials(_ context.Context, _ int64, p models.Platform) (*Credentials, error) {
	if f.disconnected[p] {
		return nil, errors.New("no account")
	}
	return &Credentials{AccountID: "acct", AccessToken: "token"}, nil
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []int64
	fn    func(ctx context.Context, post *models.SocialPost) (Result, error)
}

func (f *fakePublisher) Publish(ctx context.Context, post *models.SocialPost, _ *Credentials) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, post.ID)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(ctx, post)
	}
	return Result{Success: true, ExternalID: "ext-1"}, nil
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []PublishTask
	err   error
	// onEnqueue runs the task as an idle worker would, before Enqueue returns.
	onEnqueue func(task PublishTask)
}

func (f *fakeQueue) Enqueue(_ context.Context, task PublishTask) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.tasks = append(f.tasks, task)
	f.mu.Unlock()
	if f.onEnqueue != nil {
		f.onEnqueue(task)
	}
	return nil
}

type harness struct {
	posts     *fakePosts
	attempts  *fakeAttempts
	creds     *fakeCreds
	publisher *fakePublisher
	queue     *fakeQueue
	d         *Dispatcher
}

func newHarness(posts ...*models.SocialPost) *harness {
	h := &harness{
		posts:     newFakePosts(posts...),
		attempts:  &fakeAttempts{},
		creds:     &fakeCreds{disconnected: map[models.Platform]bool{}},
		publisher: &fakePublisher{},
		queue:     &fakeQueue{},
	}
	h.d = NewDispatcher(h.posts, h.attempts, h.creds, h.publisher, h.queue,
		WithClock(func() time.Time { return t0 }),
		WithTimeout(50*time.Millisecond),
	)
	return h
}

package publisher

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/maheshrc27/contentloop/internal/publish"
)

// Registry dispatches to the connector registered for a post's platform.
type Registry struct {
	mu         sync.RWMutex
	connectors map[models.Platform]publish.Publisher
}

func NewRegistry() *Registry {
	return &Registry{connectors: make(map[models.Platform]publish.Publisher)}
}

// NewHTTPRegistry registers an HTTPConnector under baseURL for every
// supported platform.
func NewHTTPRegistry(baseURL string, client *http.Client) *Registry {
	r := NewRegistry()
	for _, p := range models.Platforms {
		r.Register(p, NewHTTPConnector(baseURL, p, client))
	}
	return r
}

func (r *Registry) Register(platform models.Platform, p publish.Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[platform] = p
}

func (r *Registry) Publish(ctx context.Context, post *models.SocialPost, creds *publish.Credentials) (publish.Result, error) {
	r.mu.RLock()
	p, ok := r.connectors[post.Platform]
	r.mu.RUnlock()
	if !ok {
		return publish.Result{}, fmt.Errorf("no connector registered for %s", post.Platform)
	}
	return p.Publish(ctx, post, creds)
}

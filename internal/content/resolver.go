// Package content resolves loop items into the flat content view that
// constraint checking, dispatch and rendering work from.
package content

import (
	"context"
	"fmt"

	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/rs/zerolog/log"
)

type PostLookup interface {
	GetByID(ctx context.Context, id int64) (*models.SocialPost, error)
}

// Resolved is the outcome of resolving one item. Delegate is the referenced
// post when the item is delegated and the post still exists.
type Resolved struct {
	View     models.ContentView
	Delegate *models.SocialPost
}

type Resolver struct {
	posts PostLookup
}

func NewResolver(posts PostLookup) *Resolver {
	return &Resolver{posts: posts}
}

// Resolve never fails on a dangling delegation: the view comes back empty
// with Dangling set. Errors are reserved for store failures.
func (r *Resolver) Resolve(ctx context.Context, item *models.LoopItem) (*Resolved, error) {
	switch src := item.Source().(type) {
	case models.Standalone:
		return &Resolved{View: models.ContentView{Content: src.Content}}, nil

	case models.Delegated:
		post, err := r.posts.GetByID(ctx, src.SocialPostID)
		if err != nil {
			return nil, fmt.Errorf("resolve delegated post %d: %w", src.SocialPostID, err)
		}
		if post == nil {
			log.Warn().
				Int64("loop_id", item.LoopID).
				Int64("item_id", item.ID).
				Int64("post_id", src.SocialPostID).
				Msg("loop item delegates to a post that no longer exists")
			return &Resolved{View: models.ContentView{Delegated: true, Dangling: true}}, nil
		}
		return &Resolved{
			View:     models.ContentView{Content: post.Content(), Delegated: true},
			Delegate: post,
		}, nil
	}

	return nil, fmt.Errorf("loop item %d has no content source", item.ID)
}

// ResolveAll resolves items in order, stopping at the first store failure.
func (r *Resolver) ResolveAll(ctx context.Context, items []*models.LoopItem) ([]*Resolved, error) {
	out := make([]*Resolved, 0, len(items))
	for _, item := range items {
		res, err := r.Resolve(ctx, item)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

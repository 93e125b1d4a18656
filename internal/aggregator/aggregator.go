// Package aggregator decorates posts with derived, viewer-relative state:
// comment/like counts and, for authenticated viewers, liked/favorited flags.
// It is a pure read stage, composed after the posts are loaded.
package aggregator

import (
	"context"
	"fmt"

	"github.com/plaza-net/plaza/internal/entities"
	"github.com/plaza-net/plaza/internal/storage"
)

// PostView is a post with its derived fields. Liked and Favorited are nil
// for anonymous viewers, the fields are omitted rather than reported false.
type PostView struct {
	entities.Post

	CommentsCount uint32
	LikesCount    uint32
	Liked         *bool
	Favorited     *bool
}

// Aggregator ...
type Aggregator struct {
	s storage.Storage
}

// New creates new instance of Aggregator.
func New(s storage.Storage) *Aggregator {
	return &Aggregator{s: s}
}

// EnrichPosts attaches counts and viewer flags to posts. It issues one
// grouped stats query and, for authenticated viewers, one grouped flags
// query, regardless of the number of posts.
func (a *Aggregator) EnrichPosts(ctx context.Context, posts []*entities.Post, viewer *entities.Caller) ([]*PostView, error) {
	if len(posts) == 0 {
		return []*PostView{}, nil
	}

	ids := make([]int64, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	stats, err := a.s.GetPostStats(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("failed to get post stats: %w", err)
	}

	var flags map[int64]storage.PostFlags
	if viewer != nil {
		flags, err = a.s.GetPostFlags(ctx, viewer.ID, ids...)
		if err != nil {
			return nil, fmt.Errorf("failed to get post flags: %w", err)
		}
	}

	out := make([]*PostView, len(posts))
	for i, p := range posts {
		v := PostView{Post: *p}

		if s, ok := stats[p.ID]; ok {
			v.CommentsCount = s.Comments
			v.LikesCount = s.Likes
		}

		if viewer != nil {
			f := flags[p.ID]
			liked, favorited := f.Liked, f.Favorited
			v.Liked = &liked
			v.Favorited = &favorited
		}

		out[i] = &v
	}

	return out, nil
}

// EnrichPost is EnrichPosts for a single post.
func (a *Aggregator) EnrichPost(ctx context.Context, post *entities.Post, viewer *entities.Caller) (*PostView, error) {
	vv, err := a.EnrichPosts(ctx, []*entities.Post{post}, viewer)
	if err != nil {
		return nil, err
	}

	return vv[0], nil
}

// Package impl is implementation of service interface.
package impl

import (
	"context"
	"errors"
	"fmt"

	"github.com/plaza-net/plaza/internal/aggregator"
	"github.com/plaza-net/plaza/internal/auth"
	"github.com/plaza-net/plaza/internal/entities"
	"github.com/plaza-net/plaza/internal/policy"
	"github.com/plaza-net/plaza/internal/service"
	"github.com/plaza-net/plaza/internal/storage"
)

// pageSize is the fixed post list page size.
const pageSize = 20

type srv struct {
	s storage.Storage
	a *aggregator.Aggregator
	t *auth.Tokens
}

// New creates new instance of service.
func New(s storage.Storage, t *auth.Tokens) service.Service {
	return srv{
		s: s,
		a: aggregator.New(s),
		t: t,
	}
}

func (s srv) Register(ctx context.Context, p service.RegisterParams) (*entities.User, error) {
	hash, err := auth.HashPassword(p.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u, err := s.s.CreateUser(ctx, &storage.CreateUserParams{
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, service.NewValidationError("username", "already taken")
		}

		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return u, nil
}

func (s srv) Login(ctx context.Context, username, password string) (string, error) {
	c, err := s.s.GetCredentials(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", service.ErrInvalidCredentials
		}

		return "", fmt.Errorf("failed to get credentials: %w", err)
	}

	if !auth.CheckPassword(c.PasswordHash, password) {
		return "", service.ErrInvalidCredentials
	}

	token, sessionID, expiresAt, err := s.t.Issue(c.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	if err := s.s.CreateSession(ctx, sessionID, c.UserID, expiresAt); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	return token, nil
}

func (s srv) Logout(ctx context.Context, caller *entities.Caller, sessionID string) error {
	if err := policy.Authenticated(caller, 0); err != nil {
		return err
	}

	if err := s.s.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// ListCategories returns the category reference data. It is public, there is
// no policy entry for it.
func (s srv) ListCategories(ctx context.Context) ([]*entities.Category, error) {
	cc, err := s.s.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	return cc, nil
}

func (s srv) ListUsers(ctx context.Context, caller *entities.Caller) ([]*entities.User, error) {
	if err := policy.Authorize(caller, policy.ResourceUser, policy.ActionList, 0); err != nil {
		return nil, err
	}

	uu, err := s.s.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return uu, nil
}

func (s srv) GetUser(ctx context.Context, caller *entities.Caller, id int64) (*entities.User, error) {
	if err := policy.Authorize(caller, policy.ResourceUser, policy.ActionRetrieve, 0); err != nil {
		return nil, err
	}

	u, err := s.s.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, service.ErrNotFound
		}

		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

func (s srv) ListUserFavorites(ctx context.Context, caller *entities.Caller, id int64) ([]*aggregator.PostView, error) {
	if err := policy.Authorize(caller, policy.ResourceFavorite, policy.ActionList, 0); err != nil {
		return nil, err
	}

	if _, err := s.s.GetUser(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, service.ErrNotFound
		}

		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	pp, err := s.s.ListFavoritePosts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorite posts: %w", err)
	}

	vv, err := s.a.EnrichPosts(ctx, pp, caller)
	if err != nil {
		return nil, fmt.Errorf("failed to enrich posts: %w", err)
	}

	return vv, nil
}

func (s srv) ListPosts(ctx context.Context, caller *entities.Caller, p service.ListPostsParams) ([]*aggregator.PostView, error) {
	if err := policy.Authorize(caller, policy.ResourcePost, policy.ActionList, 0); err != nil {
		return nil, err
	}

	page := p.Page
	if page > 0 {
		page--
	}

	pp, err := s.s.ListPosts(ctx, &storage.ListPostsParams{
		Limit:    pageSize,
		Offset:   page * pageSize,
		Search:   p.Search,
		Owner:    p.Owner,
		Category: p.Category,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	vv, err := s.a.EnrichPosts(ctx, pp, caller)
	if err != nil {
		return nil, fmt.Errorf("failed to enrich posts: %w", err)
	}

	return vv, nil
}

func (s srv) CreatePost(ctx context.Context, caller *entities.Caller, p service.CreatePostParams) (*entities.Post, error) {
	if err := policy.Authorize(caller, policy.ResourcePost, policy.ActionCreate, 0); err != nil {
		return nil, err
	}

	if _, err := s.s.GetCategory(ctx, p.Category); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, service.NewValidationError("category", "does not exist")
		}

		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	var post *entities.Post

	// the post row and its image rows are one unit of work
	if err := s.s.InTx(ctx, func(tx storage.Storage) error {
		var err error
		post, err = tx.CreatePost(ctx, &storage.CreatePostParams{
			Owner:        caller.ID,
			Category:     p.Category,
			Title:        p.Title,
			Body:         p.Body,
			PreviewImage: p.PreviewImage,
		})
		if err != nil {
			return fmt.Errorf("failed to create post: %w", err)
		}

		for _, image := range p.Images {
			img, err := tx.AddPostImage(ctx, post.ID, image)
			if err != nil {
				return fmt.Errorf("failed to add post image: %w", err)
			}

			post.Images = append(post.Images, *img)
		}

		return nil
	}); err != nil {
		return nil, err
	}

	return post, nil
}

func (s srv) GetPost(ctx context.Context, caller *entities.Caller, id int64) (*service.PostDetail, error) {
	if err := policy.Authorize(caller, policy.ResourcePost, policy.ActionRetrieve, 0); err != nil {
		return nil, err
	}

	p, err := s.s.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, service.ErrNotFound
		}

		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	v, err := s.a.EnrichPost(ctx, p, caller)
	if err != nil {
		return nil, fmt.Errorf("failed to enrich post: %w", err)
	}

	cc, err := s.s.ListComments(ctx, &storage.ListCommentsParams{Post: &id})
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return &service.PostDetail{
		PostView: *v,
		Comments: cc,
	}, nil
}

func (s srv) UpdatePost(ctx context.Context, caller *entities.Caller, id int64, p service.UpdatePostParams) (*entities.Post, error) {
	post, err := s.s.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, service.ErrNotFound
		}

		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	if err := policy.Authorize(caller, policy.ResourcePost, policy.ActionUpdate, post.Owner); err != nil {
		return nil, err
	}

	if p.Category != nil {
		if _, err := s.s.GetCategory(ctx, *p.Category); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, service.NewValidationError("category", "does not exist")
			}

			return nil, fmt.Errorf("failed to get category: %w", err)
		}
	}

	out, err := s.s.UpdatePost(ctx, id, &storage.UpdatePostParams{
		Title:        p.Title,
		Body:         p.Body,
		Category:     p.Category,
		PreviewImage: p.PreviewImage,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, service.ErrNotFound
		}

		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	return out, nil
}

func (s srv) DeletePost(ctx context.Context, caller *entities.Caller, id int64) error {
	post, err := s.s.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return service.ErrNotFound
		}

		return fmt.Errorf("failed to get post: %w", err)
	}

	if err := policy.Authorize(caller, policy.ResourcePost, policy.ActionDestroy, post.Owner); err != nil {
		return err
	}

	if err := s.s.DeletePost(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	return nil
}

func (s srv) ListPostComments(ctx context.Context, caller *entities.Caller, postID int64) ([]*entities.Comment, error) {
	if err := policy.Authorize(caller, policy.ResourceComment, policy.ActionList, 0); err != nil {
		return nil, err
	}

	if _, err := s.s.GetPost(ctx, postID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, service.ErrNotFound
		}

		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	cc, err := s.s.ListComments(ctx, &storage.ListCommentsParams{Post: &postID})
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return cc, nil
}

func (s srv) ListPostLikes(ctx context.Context, caller *entities.Caller, postID int64) ([]*entities.Like, error) {
	if err := policy.Authorize(caller, policy.ResourceLike, policy.ActionList, 0); err != nil {
		return nil, err
	}

	if _, err := s.s.GetPost(ctx, postID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, service.ErrNotFound
		}

		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	ll, err := s.s.ListLikes(ctx, &storage.ListLikesParams{Post: &postID})
	if err != nil {
		return nil, fmt.Errorf("failed to list likes: %w", err)
	}

	return ll, nil
}

func (s srv) SetFavorite(ctx context.Context, caller *entities.Caller, postID int64, desired bool) error {
	action := policy.ActionDestroy
	if desired {
		action = policy.ActionCreate
	}

	if err := policy.Authorize(caller, policy.ResourceFavorite, action, 0); err != nil {
		return err
	}

	if _, err := s.s.GetPost(ctx, postID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return service.ErrNotFound
		}

		return fmt.Errorf("failed to get post: %w", err)
	}

	if desired {
		// relies on the store's uniqueness constraint, a concurrent
		// duplicate insert surfaces as conflict rather than a fault
		if err := s.s.CreateFavorite(ctx, caller.ID, postID); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return service.ErrAlreadyExists
			}

			return fmt.Errorf("failed to create favorite: %w", err)
		}

		return nil
	}

	if err := s.s.DeleteFavorite(ctx, caller.ID, postID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return service.ErrNotFound
		}

		return fmt.Errorf("failed to delete favorite: %w", err)
	}

	return nil
}

func (s srv) CreateComment(ctx context.Context, caller *entities.Caller, p service.CreateCommentParams) (*entities.Comment, error) {
	if err := policy.Authorize(caller, policy.ResourceComment, policy.ActionCreate, 0); err != nil {
		return nil, err
	}

	c, err := s.s.CreateComment(ctx, &storage.CreateCommentParams{
		Owner: caller.ID,
		Post:  p.Post,
		Body:  p.Body,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, service.NewValidationError("post", "does not exist")
		}

		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	return c, nil
}

func (s srv) GetComment(ctx context.Context, caller *entities.Caller, id int64) (*entities.Comment, error) {
	if err := policy.Authorize(caller, policy.ResourceComment, policy.ActionRetrieve, 0); err != nil {
		return nil, err
	}

	c, err := s.s.GetComment(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, service.ErrNotFound
		}

		return nil, fmt.Errorf("failed to get comment: %w", err)
	}

	return c, nil
}

func (s srv) DeleteComment(ctx context.Context, caller *entities.Caller, id int64) error {
	c, err := s.s.GetComment(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return service.ErrNotFound
		}

		return fmt.Errorf("failed to get comment: %w", err)
	}

	if err := policy.Authorize(caller, policy.ResourceComment, policy.ActionDestroy, c.Owner); err != nil {
		return err
	}

	if err := s.s.DeleteComment(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	return nil
}

func (s srv) ListOwnComments(ctx context.Context, caller *entities.Caller) ([]*entities.Comment, error) {
	if err := policy.Authenticated(caller, 0); err != nil {
		return nil, err
	}

	cc, err := s.s.ListComments(ctx, &storage.ListCommentsParams{Owner: &caller.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return cc, nil
}

func (s srv) CreateLike(ctx context.Context, caller *entities.Caller, postID int64) (*entities.Like, error) {
	if err := policy.Authorize(caller, policy.ResourceLike, policy.ActionCreate, 0); err != nil {
		return nil, err
	}

	l, err := s.s.CreateLike(ctx, caller.ID, postID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrConflict):
			return nil, service.ErrAlreadyExists
		case errors.Is(err, storage.ErrNotFound):
			return nil, service.NewValidationError("post", "does not exist")
		}

		return nil, fmt.Errorf("failed to create like: %w", err)
	}

	return l, nil
}

func (s srv) DeleteLike(ctx context.Context, caller *entities.Caller, id int64) error {
	l, err := s.s.GetLike(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return service.ErrNotFound
		}

		return fmt.Errorf("failed to get like: %w", err)
	}

	if err := policy.Authorize(caller, policy.ResourceLike, policy.ActionDestroy, l.Owner); err != nil {
		return err
	}

	if err := s.s.DeleteLike(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to delete like: %w", err)
	}

	return nil
}

func (s srv) ListOwnLikes(ctx context.Context, caller *entities.Caller) ([]*entities.Like, error) {
	if err := policy.Authenticated(caller, 0); err != nil {
		return nil, err
	}

	ll, err := s.s.ListLikes(ctx, &storage.ListLikesParams{Owner: &caller.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list likes: %w", err)
	}

	return ll, nil
}

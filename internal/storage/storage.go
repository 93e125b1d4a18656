// Package storage contains a storage interface.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/plaza-net/plaza/internal/entities"
)

//go:generate mockgen -destination=./mock/storage.go -package=mock -source=storage.go

// ErrNotFound ...
var ErrNotFound = fmt.Errorf("not found")

// ErrConflict is returned when an insert violates a uniqueness constraint.
var ErrConflict = fmt.Errorf("already exists")

// Storage provides methods for interacting with database.
type Storage interface {
	InTx(ctx context.Context, f func(s Storage) error) error
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, p *CreateUserParams) (*entities.User, error)
	GetUser(ctx context.Context, id int64) (*entities.User, error)
	GetCredentials(ctx context.Context, username string) (*Credentials, error)
	ListUsers(ctx context.Context) ([]*entities.User, error)

	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time) error
	GetSessionUser(ctx context.Context, id string) (*entities.User, error)
	DeleteSession(ctx context.Context, id string) error

	GetCategory(ctx context.Context, id int64) (*entities.Category, error)
	ListCategories(ctx context.Context) ([]*entities.Category, error)

	CreatePost(ctx context.Context, p *CreatePostParams) (*entities.Post, error)
	AddPostImage(ctx context.Context, postID int64, image string) (*entities.PostImage, error)
	GetPost(ctx context.Context, id int64) (*entities.Post, error)
	UpdatePost(ctx context.Context, id int64, p *UpdatePostParams) (*entities.Post, error)
	DeletePost(ctx context.Context, id int64) error
	ListPosts(ctx context.Context, p *ListPostsParams) ([]*entities.Post, error)

	CreateComment(ctx context.Context, p *CreateCommentParams) (*entities.Comment, error)
	GetComment(ctx context.Context, id int64) (*entities.Comment, error)
	DeleteComment(ctx context.Context, id int64) error
	ListComments(ctx context.Context, p *ListCommentsParams) ([]*entities.Comment, error)

	CreateLike(ctx context.Context, owner, post int64) (*entities.Like, error)
	GetLike(ctx context.Context, id int64) (*entities.Like, error)
	DeleteLike(ctx context.Context, id int64) error
	ListLikes(ctx context.Context, p *ListLikesParams) ([]*entities.Like, error)

	CreateFavorite(ctx context.Context, owner, post int64) error
	DeleteFavorite(ctx context.Context, owner, post int64) error
	ListFavoritePosts(ctx context.Context, owner int64) ([]*entities.Post, error)

	GetPostStats(ctx context.Context, id ...int64) (map[int64]PostStats, error)
	GetPostFlags(ctx context.Context, viewer int64, id ...int64) (map[int64]PostFlags, error)
}

// CreateUserParams ...
type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
}

// Credentials is what the login flow needs to verify a password.
type Credentials struct {
	UserID       int64
	Username     string
	PasswordHash string
	Admin        bool
}

// CreatePostParams ...
type CreatePostParams struct {
	Owner        int64
	Category     int64
	Title        string
	Body         string
	PreviewImage string
}

// UpdatePostParams carries the mutable post fields. Nil means keep the
// stored value, so the same params serve full and partial updates.
type UpdatePostParams struct {
	Title        *string
	Body         *string
	Category     *int64
	PreviewImage *string
}

// ListPostsParams ...
type ListPostsParams struct {
	Limit    uint16
	Offset   uint64
	Search   *string
	Owner    *int64
	Category *int64
}

// CreateCommentParams ...
type CreateCommentParams struct {
	Owner int64
	Post  int64
	Body  string
}

// ListCommentsParams filters comments by post or by owner.
type ListCommentsParams struct {
	Post  *int64
	Owner *int64
}

// ListLikesParams filters likes by post or by owner.
type ListLikesParams struct {
	Post  *int64
	Owner *int64
}

// PostStats is derived per-post counters.
type PostStats struct {
	Comments uint32
	Likes    uint32
}

// PostFlags is derived per-viewer state of a post.
type PostFlags struct {
	Liked     bool
	Favorited bool
}

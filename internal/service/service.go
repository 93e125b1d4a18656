// Package service contains interface for service business-logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/plaza-net/plaza/internal/aggregator"
	"github.com/plaza-net/plaza/internal/entities"
	"github.com/plaza-net/plaza/internal/policy"
)

//go:generate mockgen -destination=./mock/service.go -package=mock -source=service.go

// ErrNotFound ...
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when a like or favorite for the pair already
// exists, or on a taken username. It is an expected outcome, not a fault.
var ErrAlreadyExists = errors.New("already exists")

// ErrInvalidCredentials ...
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrUnauthenticated and ErrForbidden come from the policy engine so that
// callers match a single pair of sentinels across layers.
var (
	ErrUnauthenticated = policy.ErrUnauthenticated
	ErrForbidden       = policy.ErrForbidden
)

// ValidationError carries field-level detail for a 400-equivalent response.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	ff := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		ff = append(ff, fmt.Sprintf("%s: %s", k, v))
	}
	sort.Strings(ff)

	return "validation failed: " + strings.Join(ff, "; ")
}

// NewValidationError ...
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

// Service orchestrates resource operations: it authorizes via the policy
// engine, persists via storage and shapes read responses via the aggregator.
type Service interface {
	Register(ctx context.Context, p RegisterParams) (*entities.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context, caller *entities.Caller, sessionID string) error

	ListCategories(ctx context.Context) ([]*entities.Category, error)

	ListUsers(ctx context.Context, caller *entities.Caller) ([]*entities.User, error)
	GetUser(ctx context.Context, caller *entities.Caller, id int64) (*entities.User, error)
	ListUserFavorites(ctx context.Context, caller *entities.Caller, id int64) ([]*aggregator.PostView, error)

	ListPosts(ctx context.Context, caller *entities.Caller, p ListPostsParams) ([]*aggregator.PostView, error)
	CreatePost(ctx context.Context, caller *entities.Caller, p CreatePostParams) (*entities.Post, error)
	GetPost(ctx context.Context, caller *entities.Caller, id int64) (*PostDetail, error)
	UpdatePost(ctx context.Context, caller *entities.Caller, id int64, p UpdatePostParams) (*entities.Post, error)
	DeletePost(ctx context.Context, caller *entities.Caller, id int64) error
	ListPostComments(ctx context.Context, caller *entities.Caller, postID int64) ([]*entities.Comment, error)
	ListPostLikes(ctx context.Context, caller *entities.Caller, postID int64) ([]*entities.Like, error)
	SetFavorite(ctx context.Context, caller *entities.Caller, postID int64, desired bool) error

	CreateComment(ctx context.Context, caller *entities.Caller, p CreateCommentParams) (*entities.Comment, error)
	GetComment(ctx context.Context, caller *entities.Caller, id int64) (*entities.Comment, error)
	DeleteComment(ctx context.Context, caller *entities.Caller, id int64) error
	ListOwnComments(ctx context.Context, caller *entities.Caller) ([]*entities.Comment, error)

	CreateLike(ctx context.Context, caller *entities.Caller, postID int64) (*entities.Like, error)
	DeleteLike(ctx context.Context, caller *entities.Caller, id int64) error
	ListOwnLikes(ctx context.Context, caller *entities.Caller) ([]*entities.Like, error)
}

// RegisterParams ...
type RegisterParams struct {
	Username string
	Email    string
	Password string
}

// ListPostsParams ...
type ListPostsParams struct {
	Page     uint64
	Search   *string
	Owner    *int64
	Category *int64
}

// CreatePostParams ...
type CreatePostParams struct {
	Category     int64
	Title        string
	Body         string
	PreviewImage string
	Images       []string
}

// UpdatePostParams ...
type UpdatePostParams struct {
	Title        *string
	Body         *string
	Category     *int64
	PreviewImage *string
}

// CreateCommentParams ...
type CreateCommentParams struct {
	Post int64
	Body string
}

// PostDetail is the expanded retrieve shape: the enriched post plus the full
// serialized comment list. List responses carry counts only.
type PostDetail struct {
	aggregator.PostView

	Comments []*entities.Comment
}

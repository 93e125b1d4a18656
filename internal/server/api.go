package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sirupsen/logrus"

	"github.com/plaza-net/plaza/internal/aggregator"
	"github.com/plaza-net/plaza/internal/entities"
	"github.com/plaza-net/plaza/internal/service"
)

// Error ...
type Error struct {
	Error string `json:"error"`
}

// ValidationError ...
type ValidationError struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// Message ...
type Message struct {
	Message string `json:"message"`
}

// TokenResponse ...
type TokenResponse struct {
	Token string `json:"token"`
}

// UserListItem is the abbreviated user shape for list responses.
type UserListItem struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// User is the expanded user shape for detail responses.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
	CreatedAt uint64 `json:"created_at"`
}

// Category ...
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PostImage ...
type PostImage struct {
	ID    int64  `json:"id"`
	Post  int64  `json:"post"`
	Image string `json:"image"`
}

// PostListItem is the abbreviated post shape: counts and viewer flags, no
// body, no images, no embedded comments.
type PostListItem struct {
	ID            int64  `json:"id"`
	Owner         int64  `json:"owner"`
	OwnerUsername string `json:"owner_username"`
	Category      int64  `json:"category"`
	CategoryName  string `json:"category_name"`
	Title         string `json:"title"`
	PreviewImage  string `json:"preview_image"`
	CommentsCount uint32 `json:"comments_count"`
	LikesCount    uint32 `json:"likes_count"`
	IsLiked       *bool  `json:"is_liked,omitempty"`
	IsFavorite    *bool  `json:"is_favorite,omitempty"`
}

// PostWrite is the write-oriented post shape returned by create and update.
type PostWrite struct {
	ID           int64       `json:"id"`
	Owner        int64       `json:"owner"`
	Category     int64       `json:"category"`
	Title        string      `json:"title"`
	Body         string      `json:"body"`
	PreviewImage string      `json:"preview_image"`
	Images       []PostImage `json:"images"`
	CreatedAt    uint64      `json:"created_at"`
}

// PostDetail is the fully expanded post shape with the embedded comment
// list.
type PostDetail struct {
	ID            int64       `json:"id"`
	Owner         int64       `json:"owner"`
	OwnerUsername string      `json:"owner_username"`
	Category      int64       `json:"category"`
	CategoryName  string      `json:"category_name"`
	Title         string      `json:"title"`
	Body          string      `json:"body"`
	PreviewImage  string      `json:"preview_image"`
	Images        []PostImage `json:"images"`
	CreatedAt     uint64      `json:"created_at"`
	CommentsCount uint32      `json:"comments_count"`
	LikesCount    uint32      `json:"likes_count"`
	Comments      []Comment   `json:"comments"`
	IsLiked       *bool       `json:"is_liked,omitempty"`
	IsFavorite    *bool       `json:"is_favorite,omitempty"`
}

// Comment ...
type Comment struct {
	ID            int64  `json:"id"`
	Owner         int64  `json:"owner"`
	OwnerUsername string `json:"owner_username"`
	Post          int64  `json:"post"`
	Body          string `json:"body"`
	CreatedAt     uint64 `json:"created_at"`
}

// Like ...
type Like struct {
	ID            int64  `json:"id"`
	Owner         int64  `json:"owner"`
	OwnerUsername string `json:"owner_username"`
	Post          int64  `json:"post"`
}

func writeOK(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeOK(w, status, Error{Error: message})
}

func writeValidationError(w http.ResponseWriter, fields map[string]string) {
	writeOK(w, http.StatusBadRequest, ValidationError{
		Error:  "validation failed",
		Fields: fields,
	})
}

func writeInternalError(ctx context.Context, w http.ResponseWriter, err error) {
	logrus.WithContext(ctx).WithError(err).Error("internal server error")
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// translateError is the single place where service failures become HTTP
// statuses.
func translateError(ctx context.Context, w http.ResponseWriter, err error) {
	var vErr *service.ValidationError
	var ozzoErr validation.Errors

	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already exists")
	case errors.As(err, &vErr):
		writeValidationError(w, vErr.Fields)
	case errors.As(err, &ozzoErr):
		fields := make(map[string]string, len(ozzoErr))
		for k, v := range ozzoErr {
			fields[k] = v.Error()
		}
		writeValidationError(w, fields)
	default:
		writeInternalError(ctx, w, err)
	}
}

func toAPIUserListItem(u *entities.User) *UserListItem {
	return &UserListItem{
		ID:       u.ID,
		Username: u.Username,
	}
}

func toAPIUser(u *entities.User) *User {
	return &User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		IsAdmin:   u.Admin,
		CreatedAt: uint64(u.CreatedAt.Unix()),
	}
}

func toAPIPostImages(ii []entities.PostImage) []PostImage {
	out := make([]PostImage, len(ii))
	for i, v := range ii {
		out[i] = PostImage{ID: v.ID, Post: v.Post, Image: v.Image}
	}

	return out
}

func toAPIPostListItem(v *aggregator.PostView) *PostListItem {
	return &PostListItem{
		ID:            v.ID,
		Owner:         v.Owner,
		OwnerUsername: v.OwnerUsername,
		Category:      v.Category,
		CategoryName:  v.CategoryName,
		Title:         v.Title,
		PreviewImage:  v.PreviewImage,
		CommentsCount: v.CommentsCount,
		LikesCount:    v.LikesCount,
		IsLiked:       v.Liked,
		IsFavorite:    v.Favorited,
	}
}

func toAPIPostWrite(p *entities.Post) *PostWrite {
	return &PostWrite{
		ID:           p.ID,
		Owner:        p.Owner,
		Category:     p.Category,
		Title:        p.Title,
		Body:         p.Body,
		PreviewImage: p.PreviewImage,
		Images:       toAPIPostImages(p.Images),
		CreatedAt:    uint64(p.CreatedAt.Unix()),
	}
}

func toAPIPostDetail(d *service.PostDetail) *PostDetail {
	comments := make([]Comment, len(d.Comments))
	for i, c := range d.Comments {
		comments[i] = *toAPIComment(c)
	}

	return &PostDetail{
		ID:            d.ID,
		Owner:         d.Owner,
		OwnerUsername: d.OwnerUsername,
		Category:      d.Category,
		CategoryName:  d.CategoryName,
		Title:         d.Title,
		Body:          d.Body,
		PreviewImage:  d.PreviewImage,
		Images:        toAPIPostImages(d.Images),
		CreatedAt:     uint64(d.CreatedAt.Unix()),
		CommentsCount: d.CommentsCount,
		LikesCount:    d.LikesCount,
		Comments:      comments,
		IsLiked:       d.Liked,
		IsFavorite:    d.Favorited,
	}
}

func toAPIComment(c *entities.Comment) *Comment {
	return &Comment{
		ID:            c.ID,
		Owner:         c.Owner,
		OwnerUsername: c.OwnerUsername,
		Post:          c.Post,
		Body:          c.Body,
		CreatedAt:     uint64(c.CreatedAt.Unix()),
	}
}

func toAPILike(l *entities.Like) *Like {
	return &Like{
		ID:            l.ID,
		Owner:         l.Owner,
		OwnerUsername: l.OwnerUsername,
		Post:          l.Post,
	}
}

package server

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r registerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 64)),
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 128)),
	)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type createPostRequest struct {
	Title        string   `json:"title"`
	Body         string   `json:"body"`
	Category     int64    `json:"category"`
	PreviewImage string   `json:"preview_image"`
	Images       []string `json:"images"`
}

func (r createPostRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 256)),
		validation.Field(&r.Category, validation.Required),
	)
}

type updatePostRequest struct {
	Title        *string `json:"title"`
	Body         *string `json:"body"`
	Category     *int64  `json:"category"`
	PreviewImage *string `json:"preview_image"`
}

// Validate checks the partial-update shape; full reports the fields a PUT
// must carry.
func (r updatePostRequest) Validate(full bool) error {
	if full {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Title, validation.Required),
			validation.Field(&r.Category, validation.Required),
		)
	}

	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty),
		validation.Field(&r.Category, validation.NilOrNotEmpty),
	)
}

type createCommentRequest struct {
	Post int64  `json:"post"`
	Body string `json:"body"`
}

func (r createCommentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Post, validation.Required),
		validation.Field(&r.Body, validation.Required),
	)
}

type createLikeRequest struct {
	Post int64 `json:"post"`
}

func (r createLikeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Post, validation.Required),
	)
}

// Package entities contains main entities of service.
package entities

import (
	"time"
)

// Caller is an identity associated with an inbound request.
// A nil *Caller means the request is anonymous.
type Caller struct {
	ID       int64
	Username string
	Admin    bool
}

// User ...
type User struct {
	ID        int64
	Username  string
	Email     string
	Admin     bool
	CreatedAt time.Time
}

// Category is a named post grouping. Categories are managed externally,
// this service only reads them.
type Category struct {
	ID   int64
	Name string
}

// Post ...
type Post struct {
	ID            int64
	Owner         int64
	OwnerUsername string
	Category      int64
	CategoryName  string
	Title         string
	Body          string
	PreviewImage  string
	CreatedAt     time.Time

	// Images is populated for the detail shape only.
	Images []PostImage
}

// PostImage is an image attached to a post. It has no lifecycle of its own,
// it is created with the post and cascade-deleted with it.
type PostImage struct {
	ID    int64
	Post  int64
	Image string
}

// Comment ...
type Comment struct {
	ID            int64
	Owner         int64
	OwnerUsername string
	Post          int64
	Body          string
	CreatedAt     time.Time
}

// Like ...
type Like struct {
	ID            int64
	Owner         int64
	OwnerUsername string
	Post          int64
}

// Favorite ...
type Favorite struct {
	ID    int64
	Owner int64
	Post  int64
}

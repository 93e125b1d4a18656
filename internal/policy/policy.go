// Package policy contains pure ownership decision functions. It maps
// (caller, resource, action) to allow or deny and does no I/O, the resource
// is expected to be loaded by the caller already.
package policy

import (
	"errors"

	"github.com/plaza-net/plaza/internal/entities"
)

// ErrUnauthenticated is returned when an action requires an identity and the
// request has none.
var ErrUnauthenticated = errors.New("authentication required")

// ErrForbidden is returned when the caller's identity is known but the action
// is not allowed for it.
var ErrForbidden = errors.New("forbidden")

// Resource ...
type Resource string

const (
	// ResourceUser ...
	ResourceUser Resource = "user"
	// ResourcePost ...
	ResourcePost Resource = "post"
	// ResourceComment ...
	ResourceComment Resource = "comment"
	// ResourceLike ...
	ResourceLike Resource = "like"
	// ResourceFavorite ...
	ResourceFavorite Resource = "favorite"
)

// Action ...
type Action string

const (
	// ActionList ...
	ActionList Action = "list"
	// ActionRetrieve ...
	ActionRetrieve Action = "retrieve"
	// ActionCreate ...
	ActionCreate Action = "create"
	// ActionUpdate covers full and partial updates.
	ActionUpdate Action = "update"
	// ActionDestroy ...
	ActionDestroy Action = "destroy"
)

// Rule decides whether caller may act on a resource owned by owner.
type Rule func(caller *entities.Caller, owner int64) error

// Anyone allows any caller, including anonymous.
func Anyone(_ *entities.Caller, _ int64) error {
	return nil
}

// Authenticated requires any non-anonymous caller.
func Authenticated(caller *entities.Caller, _ int64) error {
	if caller == nil {
		return ErrUnauthenticated
	}

	return nil
}

// Owner requires the caller to own the resource.
func Owner(caller *entities.Caller, owner int64) error {
	if caller == nil {
		return ErrUnauthenticated
	}

	if caller.ID != owner {
		return ErrForbidden
	}

	return nil
}

// OwnerOrAdmin requires the caller to own the resource or be an admin.
func OwnerOrAdmin(caller *entities.Caller, owner int64) error {
	if caller == nil {
		return ErrUnauthenticated
	}

	if caller.ID != owner && !caller.Admin {
		return ErrForbidden
	}

	return nil
}

type key struct {
	resource Resource
	action   Action
}

// rules is the whole decision table. Pairs absent from the table deny.
var rules = map[key]Rule{
	{ResourcePost, ActionList}:     Anyone,
	{ResourcePost, ActionRetrieve}: Anyone,
	{ResourcePost, ActionCreate}:   Authenticated,
	{ResourcePost, ActionUpdate}:   Owner,
	{ResourcePost, ActionDestroy}:  OwnerOrAdmin,

	{ResourceComment, ActionList}:     Anyone,
	{ResourceComment, ActionRetrieve}: Anyone,
	{ResourceComment, ActionCreate}:   Authenticated,
	{ResourceComment, ActionDestroy}:  Owner,

	{ResourceLike, ActionList}:     Anyone,
	{ResourceLike, ActionCreate}:   Authenticated,
	{ResourceLike, ActionDestroy}:  Owner,

	// favorites are always scoped to the caller, ownership is implicit
	{ResourceFavorite, ActionCreate}:  Authenticated,
	{ResourceFavorite, ActionDestroy}: Authenticated,
	{ResourceFavorite, ActionList}:    Authenticated,

	{ResourceUser, ActionList}:     Authenticated,
	{ResourceUser, ActionRetrieve}: Authenticated,
}

// Authorize evaluates the decision table for the given caller and resource.
// owner is ignored by rules which do not compare it.
func Authorize(caller *entities.Caller, resource Resource, action Action, owner int64) error {
	rule, ok := rules[key{resource, action}]
	if !ok {
		if caller == nil {
			return ErrUnauthenticated
		}

		return ErrForbidden
	}

	return rule(caller, owner)
}

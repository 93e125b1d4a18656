package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plaza-net/plaza/internal/entities"
)

var (
	anonymous *entities.Caller
	owner     = &entities.Caller{ID: 1, Username: "owner"}
	other     = &entities.Caller{ID: 2, Username: "other"}
	admin     = &entities.Caller{ID: 3, Username: "admin", Admin: true}
)

func TestAuthorize(t *testing.T) {
	tt := []struct {
		name     string
		caller   *entities.Caller
		resource Resource
		action   Action

		err error
	}{
		{name: "post list anonymous", caller: anonymous, resource: ResourcePost, action: ActionList},
		{name: "post retrieve anonymous", caller: anonymous, resource: ResourcePost, action: ActionRetrieve},
		{name: "post create anonymous", caller: anonymous, resource: ResourcePost, action: ActionCreate, err: ErrUnauthenticated},
		{name: "post create authenticated", caller: other, resource: ResourcePost, action: ActionCreate},
		{name: "post update owner", caller: owner, resource: ResourcePost, action: ActionUpdate},
		{name: "post update non-owner", caller: other, resource: ResourcePost, action: ActionUpdate, err: ErrForbidden},
		{name: "post update admin", caller: admin, resource: ResourcePost, action: ActionUpdate, err: ErrForbidden},
		{name: "post update anonymous", caller: anonymous, resource: ResourcePost, action: ActionUpdate, err: ErrUnauthenticated},
		{name: "post destroy owner", caller: owner, resource: ResourcePost, action: ActionDestroy},
		{name: "post destroy admin", caller: admin, resource: ResourcePost, action: ActionDestroy},
		{name: "post destroy non-owner", caller: other, resource: ResourcePost, action: ActionDestroy, err: ErrForbidden},

		{name: "comment create anonymous", caller: anonymous, resource: ResourceComment, action: ActionCreate, err: ErrUnauthenticated},
		{name: "comment retrieve anonymous", caller: anonymous, resource: ResourceComment, action: ActionRetrieve},
		{name: "comment destroy owner", caller: owner, resource: ResourceComment, action: ActionDestroy},
		{name: "comment destroy non-owner", caller: other, resource: ResourceComment, action: ActionDestroy, err: ErrForbidden},
		{name: "comment destroy admin", caller: admin, resource: ResourceComment, action: ActionDestroy, err: ErrForbidden},
		{name: "comment destroy anonymous", caller: anonymous, resource: ResourceComment, action: ActionDestroy, err: ErrUnauthenticated},

		{name: "like create anonymous", caller: anonymous, resource: ResourceLike, action: ActionCreate, err: ErrUnauthenticated},
		{name: "like create authenticated", caller: other, resource: ResourceLike, action: ActionCreate},
		{name: "like destroy owner", caller: owner, resource: ResourceLike, action: ActionDestroy},
		{name: "like destroy non-owner", caller: other, resource: ResourceLike, action: ActionDestroy, err: ErrForbidden},

		{name: "favorite create anonymous", caller: anonymous, resource: ResourceFavorite, action: ActionCreate, err: ErrUnauthenticated},
		{name: "favorite create authenticated", caller: other, resource: ResourceFavorite, action: ActionCreate},
		{name: "favorite destroy authenticated", caller: other, resource: ResourceFavorite, action: ActionDestroy},

		{name: "user list anonymous", caller: anonymous, resource: ResourceUser, action: ActionList, err: ErrUnauthenticated},
		{name: "user list authenticated", caller: other, resource: ResourceUser, action: ActionList},
		{name: "user retrieve anonymous", caller: anonymous, resource: ResourceUser, action: ActionRetrieve, err: ErrUnauthenticated},
		{name: "user retrieve authenticated", caller: other, resource: ResourceUser, action: ActionRetrieve},

		// unmapped pairs deny
		{name: "user destroy anonymous", caller: anonymous, resource: ResourceUser, action: ActionDestroy, err: ErrUnauthenticated},
		{name: "user destroy authenticated", caller: admin, resource: ResourceUser, action: ActionDestroy, err: ErrForbidden},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.caller, tc.resource, tc.action, owner.ID)

			if tc.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.err)
			}
		})
	}
}

func TestRules(t *testing.T) {
	assert.NoError(t, Anyone(nil, 0))
	assert.NoError(t, Anyone(owner, 1))

	assert.ErrorIs(t, Authenticated(nil, 0), ErrUnauthenticated)
	assert.NoError(t, Authenticated(other, 0))

	assert.ErrorIs(t, Owner(nil, 1), ErrUnauthenticated)
	assert.ErrorIs(t, Owner(other, 1), ErrForbidden)
	assert.NoError(t, Owner(owner, 1))

	assert.ErrorIs(t, OwnerOrAdmin(nil, 1), ErrUnauthenticated)
	assert.ErrorIs(t, OwnerOrAdmin(other, 1), ErrForbidden)
	assert.NoError(t, OwnerOrAdmin(owner, 1))
	assert.NoError(t, OwnerOrAdmin(admin, 1))
}

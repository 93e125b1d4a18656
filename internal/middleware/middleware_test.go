package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plaza-net/plaza/internal/auth"
	"github.com/plaza-net/plaza/internal/entities"
	"github.com/plaza-net/plaza/internal/storage"
	"github.com/plaza-net/plaza/internal/storage/mock"
)

func TestAuth(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockStorage(ctrl)

	tokens := auth.NewTokens("secret", time.Hour)

	token, sessionID, _, err := tokens.Issue(1)
	require.NoError(t, err)

	var gotCaller *entities.Caller
	var gotSessionID string

	handler := Auth(s, tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCaller = CallerFromContext(r.Context())
		gotSessionID = SessionIDFromContext(r.Context())
	}))

	t.Run("anonymous", func(t *testing.T) {
		gotCaller = &entities.Caller{}

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, gotCaller)
	})

	t.Run("valid token", func(t *testing.T) {
		s.EXPECT().GetSessionUser(gomock.Any(), sessionID).Return(&entities.User{
			ID:       1,
			Username: "user",
			Admin:    true,
		}, nil)

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, gotCaller)
		assert.EqualValues(t, 1, gotCaller.ID)
		assert.Equal(t, "user", gotCaller.Username)
		assert.True(t, gotCaller.Admin)
		assert.Equal(t, sessionID, gotSessionID)
	})

	t.Run("malformed header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("revoked session", func(t *testing.T) {
		s.EXPECT().GetSessionUser(gomock.Any(), sessionID).Return(nil, storage.ErrNotFound)

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

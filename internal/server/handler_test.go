package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plaza-net/plaza/internal/aggregator"
	"github.com/plaza-net/plaza/internal/entities"
	mm "github.com/plaza-net/plaza/internal/middleware"
	"github.com/plaza-net/plaza/internal/service"
	"github.com/plaza-net/plaza/internal/service/mock"
)

var testCaller = &entities.Caller{ID: 1, Username: "user"}

func withCaller(r *http.Request, c *entities.Caller) *http.Request {
	return r.WithContext(mm.WithCaller(r.Context(), c, "session"))
}

func Test_listCategories(t *testing.T) {
	r, err := http.NewRequest(http.MethodGet, "/v1/categories", nil)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	s.EXPECT().ListCategories(gomock.Any()).Return([]*entities.Category{
		{ID: 1, Name: "pets"},
		{ID: 2, Name: "tech"},
	}, nil)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Get("/v1/categories", srv.listCategories)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":1,"name":"pets"},{"id":2,"name":"tech"}]`, w.Body.String())
}

func Test_listPosts(t *testing.T) {
	timestamp := time.Unix(100, 0)

	r, err := http.NewRequest(http.MethodGet, "/v1/posts?page=2&search=cats&owner=3&category=1", nil)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	s.EXPECT().ListPosts(gomock.Any(), nil, gomock.Any()).Do(func(_ context.Context, _ *entities.Caller, p service.ListPostsParams) {
		assert.EqualValues(t, 2, p.Page)
		assert.Equal(t, "cats", *p.Search)
		assert.EqualValues(t, 3, *p.Owner)
		assert.EqualValues(t, 1, *p.Category)
	}).Return([]*aggregator.PostView{
		{
			Post: entities.Post{
				ID:            10,
				Owner:         3,
				OwnerUsername: "owner",
				Category:      1,
				CategoryName:  "pets",
				Title:         "title",
				PreviewImage:  "preview",
				CreatedAt:     timestamp,
			},
			CommentsCount: 2,
			LikesCount:    5,
		},
	}, nil)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Get("/v1/posts", srv.listPosts)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	// no viewer, so is_liked and is_favorite are absent
	assert.JSONEq(t, `
[
   {
      "id":10,
      "owner":3,
      "owner_username":"owner",
      "category":1,
      "category_name":"pets",
      "title":"title",
      "preview_image":"preview",
      "comments_count":2,
      "likes_count":5
   }
]
	`, w.Body.String())
}

func Test_listPosts_authenticated(t *testing.T) {
	liked, favorited := true, false

	r, err := http.NewRequest(http.MethodGet, "/v1/posts", nil)
	require.NoError(t, err)
	r = withCaller(r, testCaller)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	s.EXPECT().ListPosts(gomock.Any(), testCaller, gomock.Any()).Return([]*aggregator.PostView{
		{
			Post:      entities.Post{ID: 10, Owner: 3, Category: 1},
			Liked:     &liked,
			Favorited: &favorited,
		},
	}, nil)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Get("/v1/posts", srv.listPosts)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `
[
   {
      "id":10,
      "owner":3,
      "owner_username":"",
      "category":1,
      "category_name":"",
      "title":"",
      "preview_image":"",
      "comments_count":0,
      "likes_count":0,
      "is_liked":true,
      "is_favorite":false
   }
]
	`, w.Body.String())
}

func Test_listPosts_invalidPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := chi.NewRouter()
	srv := server{s: mock.NewMockService(ctrl)}
	router.Get("/v1/posts", srv.listPosts)

	for _, q := range []string{"page=0", "page=abc", "owner=abc", "category=abc"} {
		r, err := http.NewRequest(http.MethodGet, fmt.Sprintf("/v1/posts?%s", q), nil)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func Test_getPost(t *testing.T) {
	timestamp := time.Unix(200, 0)
	liked, favorited := false, true

	r, err := http.NewRequest(http.MethodGet, "/v1/posts/10", nil)
	require.NoError(t, err)
	r = withCaller(r, testCaller)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	s.EXPECT().GetPost(gomock.Any(), testCaller, int64(10)).Return(&service.PostDetail{
		PostView: aggregator.PostView{
			Post: entities.Post{
				ID:            10,
				Owner:         3,
				OwnerUsername: "owner",
				Category:      1,
				CategoryName:  "pets",
				Title:         "title",
				Body:          "body",
				PreviewImage:  "preview",
				Images: []entities.PostImage{
					{ID: 1, Post: 10, Image: "img.png"},
				},
				CreatedAt: timestamp,
			},
			CommentsCount: 1,
			LikesCount:    3,
			Liked:         &liked,
			Favorited:     &favorited,
		},
		Comments: []*entities.Comment{
			{ID: 7, Owner: 1, OwnerUsername: "user", Post: 10, Body: "hi", CreatedAt: timestamp},
		},
	}, nil)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Get("/v1/posts/{id}", srv.getPost)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `
{
   "id":10,
   "owner":3,
   "owner_username":"owner",
   "category":1,
   "category_name":"pets",
   "title":"title",
   "body":"body",
   "preview_image":"preview",
   "images":[{"id":1,"post":10,"image":"img.png"}],
   "created_at":200,
   "comments_count":1,
   "likes_count":3,
   "comments":[
      {"id":7,"owner":1,"owner_username":"user","post":10,"body":"hi","created_at":200}
   ],
   "is_liked":false,
   "is_favorite":true
}
	`, w.Body.String())
}

func Test_getPost_notFound(t *testing.T) {
	r, err := http.NewRequest(http.MethodGet, "/v1/posts/404", nil)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	s.EXPECT().GetPost(gomock.Any(), nil, int64(404)).Return(nil, service.ErrNotFound)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Get("/v1/posts/{id}", srv.getPost)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func Test_createPost(t *testing.T) {
	body := bytes.NewBufferString(`{"title":"title","body":"body","category":1}`)

	r, err := http.NewRequest(http.MethodPost, "/v1/posts", body)
	require.NoError(t, err)
	r = withCaller(r, testCaller)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	s.EXPECT().CreatePost(gomock.Any(), testCaller, service.CreatePostParams{
		Category: 1,
		Title:    "title",
		Body:     "body",
	}).Return(&entities.Post{
		ID:        10,
		Owner:     1,
		Category:  1,
		Title:     "title",
		Body:      "body",
		CreatedAt: time.Unix(300, 0),
	}, nil)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Post("/v1/posts", srv.createPost)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `
{
   "id":10,
   "owner":1,
   "category":1,
   "title":"title",
   "body":"body",
   "preview_image":"",
   "images":[],
   "created_at":300
}
	`, w.Body.String())
}

func Test_createPost_validation(t *testing.T) {
	body := bytes.NewBufferString(`{"body":"body"}`)

	r, err := http.NewRequest(http.MethodPost, "/v1/posts", body)
	require.NoError(t, err)
	r = withCaller(r, testCaller)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := chi.NewRouter()
	srv := server{s: mock.NewMockService(ctrl)}
	router.Post("/v1/posts", srv.createPost)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "title")
	assert.Contains(t, w.Body.String(), "category")
}

func Test_updatePost_putRequiresFullBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Put("/v1/posts/{id}", srv.updatePost)
	router.Patch("/v1/posts/{id}", srv.updatePost)

	// PUT without a title is rejected before the service is called
	r, err := http.NewRequest(http.MethodPut, "/v1/posts/10", bytes.NewBufferString(`{"body":"b"}`))
	require.NoError(t, err)
	r = withCaller(r, testCaller)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// PATCH with a partial body is fine
	s.EXPECT().UpdatePost(gomock.Any(), testCaller, int64(10), gomock.Any()).
		Do(func(_ context.Context, _ *entities.Caller, _ int64, p service.UpdatePostParams) {
			assert.Equal(t, "b", *p.Body)
			assert.Nil(t, p.Title)
		}).
		Return(&entities.Post{ID: 10, Owner: 1, Body: "b", CreatedAt: time.Unix(0, 0)}, nil)

	r, err = http.NewRequest(http.MethodPatch, "/v1/posts/10", bytes.NewBufferString(`{"body":"b"}`))
	require.NoError(t, err)
	r = withCaller(r, testCaller)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func Test_deletePost(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Delete("/v1/posts/{id}", srv.deletePost)

	s.EXPECT().DeletePost(gomock.Any(), testCaller, int64(10)).Return(nil)

	r, err := http.NewRequest(http.MethodDelete, "/v1/posts/10", nil)
	require.NoError(t, err)
	r = withCaller(r, testCaller)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)

	s.EXPECT().DeletePost(gomock.Any(), testCaller, int64(10)).Return(service.ErrForbidden)

	r, err = http.NewRequest(http.MethodDelete, "/v1/posts/10", nil)
	require.NoError(t, err)
	r = withCaller(r, testCaller)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func Test_addFavorite(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Post("/v1/posts/{id}/favorites", srv.addFavorite)

	tt := []struct {
		name string
		err  error
		code int
		body string
	}{
		{
			name: "added",
			err:  nil,
			code: http.StatusCreated,
			body: `{"message":"added to favorites"}`,
		},
		{
			name: "already in favorites",
			err:  service.ErrAlreadyExists,
			code: http.StatusBadRequest,
			body: `{"message":"already in favorites"}`,
		},
		{
			name: "post not found",
			err:  service.ErrNotFound,
			code: http.StatusNotFound,
			body: `{"error":"not found"}`,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			s.EXPECT().SetFavorite(gomock.Any(), testCaller, int64(10), true).Return(tc.err)

			r, err := http.NewRequest(http.MethodPost, "/v1/posts/10/favorites", nil)
			require.NoError(t, err)
			r = withCaller(r, testCaller)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)

			assert.Equal(t, tc.code, w.Code)
			assert.JSONEq(t, tc.body, w.Body.String())
		})
	}
}

func Test_removeFavorite(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Delete("/v1/posts/{id}/favorites", srv.removeFavorite)

	s.EXPECT().SetFavorite(gomock.Any(), testCaller, int64(10), false).Return(nil)

	r, err := http.NewRequest(http.MethodDelete, "/v1/posts/10/favorites", nil)
	require.NoError(t, err)
	r = withCaller(r, testCaller)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)

	s.EXPECT().SetFavorite(gomock.Any(), testCaller, int64(10), false).Return(service.ErrNotFound)

	r, err = http.NewRequest(http.MethodDelete, "/v1/posts/10/favorites", nil)
	require.NoError(t, err)
	r = withCaller(r, testCaller)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"post not found in favorites"}`, w.Body.String())
}

func Test_register(t *testing.T) {
	body := bytes.NewBufferString(`{"username":"user","email":"user@example.com","password":"password123"}`)

	r, err := http.NewRequest(http.MethodPost, "/v1/users/register", body)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	s.EXPECT().Register(gomock.Any(), service.RegisterParams{
		Username: "user",
		Email:    "user@example.com",
		Password: "password123",
	}).Return(&entities.User{ID: 1, Username: "user", Email: "user@example.com", CreatedAt: time.Unix(100, 0)}, nil)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Post("/v1/users/register", srv.register)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `
{
   "id":1,
   "username":"user",
   "email":"user@example.com",
   "is_admin":false,
   "created_at":100
}
	`, w.Body.String())
}

func Test_register_takenUsername(t *testing.T) {
	body := bytes.NewBufferString(`{"username":"user","password":"password123"}`)

	r, err := http.NewRequest(http.MethodPost, "/v1/users/register", body)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	s.EXPECT().Register(gomock.Any(), gomock.Any()).
		Return(nil, service.NewValidationError("username", "already taken"))

	router := chi.NewRouter()
	srv := server{s: s}
	router.Post("/v1/users/register", srv.register)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"validation failed","fields":{"username":"already taken"}}`, w.Body.String())
}

func Test_login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Post("/v1/users/login", srv.login)

	s.EXPECT().Login(gomock.Any(), "user", "password123").Return("token", nil)

	r, err := http.NewRequest(http.MethodPost, "/v1/users/login",
		bytes.NewBufferString(`{"username":"user","password":"password123"}`))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"token":"token"}`, w.Body.String())

	s.EXPECT().Login(gomock.Any(), "user", "wrong1234").Return("", service.ErrInvalidCredentials)

	r, err = http.NewRequest(http.MethodPost, "/v1/users/login",
		bytes.NewBufferString(`{"username":"user","password":"wrong1234"}`))
	require.NoError(t, err)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func Test_createLike(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Post("/v1/likes", srv.createLike)

	s.EXPECT().CreateLike(gomock.Any(), testCaller, int64(10)).
		Return(&entities.Like{ID: 1, Owner: 1, OwnerUsername: "user", Post: 10}, nil)

	r, err := http.NewRequest(http.MethodPost, "/v1/likes", bytes.NewBufferString(`{"post":10}`))
	require.NoError(t, err)
	r = withCaller(r, testCaller)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":1,"owner":1,"owner_username":"user","post":10}`, w.Body.String())

	// a second like of the same post conflicts
	s.EXPECT().CreateLike(gomock.Any(), testCaller, int64(10)).Return(nil, service.ErrAlreadyExists)

	r, err = http.NewRequest(http.MethodPost, "/v1/likes", bytes.NewBufferString(`{"post":10}`))
	require.NoError(t, err)
	r = withCaller(r, testCaller)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func Test_createComment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Post("/v1/comments", srv.createComment)

	s.EXPECT().CreateComment(gomock.Any(), testCaller, service.CreateCommentParams{
		Post: 10,
		Body: "hi",
	}).Return(&entities.Comment{ID: 7, Owner: 1, OwnerUsername: "user", Post: 10, Body: "hi", CreatedAt: time.Unix(400, 0)}, nil)

	r, err := http.NewRequest(http.MethodPost, "/v1/comments", bytes.NewBufferString(`{"post":10,"body":"hi"}`))
	require.NoError(t, err)
	r = withCaller(r, testCaller)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":7,"owner":1,"owner_username":"user","post":10,"body":"hi","created_at":400}`, w.Body.String())
}

func Test_createComment_anonymous(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Post("/v1/comments", srv.createComment)

	s.EXPECT().CreateComment(gomock.Any(), nil, gomock.Any()).Return(nil, service.ErrUnauthenticated)

	r, err := http.NewRequest(http.MethodPost, "/v1/comments", bytes.NewBufferString(`{"post":10,"body":"hi"}`))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func Test_logout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Post("/v1/users/logout", srv.logout)

	s.EXPECT().Logout(gomock.Any(), testCaller, "session").Return(nil)

	r, err := http.NewRequest(http.MethodPost, "/v1/users/logout", nil)
	require.NoError(t, err)
	r = withCaller(r, testCaller)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"logged out"}`, w.Body.String())
}

func Test_idParam(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/v1/posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}

		writeOK(w, http.StatusOK, id)
	})

	for path, code := range map[string]int{
		"/v1/posts/10":  http.StatusOK,
		"/v1/posts/0":   http.StatusBadRequest,
		"/v1/posts/-5":  http.StatusBadRequest,
		"/v1/posts/abc": http.StatusBadRequest,
	} {
		r, err := http.NewRequest(http.MethodGet, path, nil)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, code, w.Code, path)
	}
}

// Package server Plaza
//
// Plaza is a social-content service which provides access to posts,
// comments, likes and favorites.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	mm "github.com/plaza-net/plaza/internal/middleware"

	"github.com/plaza-net/plaza/internal/auth"
	"github.com/plaza-net/plaza/internal/filestore"
	"github.com/plaza-net/plaza/internal/service"
	"github.com/plaza-net/plaza/internal/storage"
)

const maxBodySize = 10 << 20 // multipart image uploads

type server struct {
	s service.Service
	f filestore.Store
}

// SetupRouter setups handlers to chi router.
func SetupRouter(svc service.Service, st storage.Storage, tokens *auth.Tokens, files filestore.Store, r chi.Router, timeout time.Duration) {
	r.Use(
		middleware.StripSlashes,
		cors.AllowAll().Handler,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		middleware.RequestSize(maxBodySize),
		mm.Logger,
		mm.Auth(st, tokens),
	)

	srv := server{
		s: svc,
		f: files,
	}

	r.Get("/health", health(st))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", srv.register)
			r.Post("/login", srv.login)
			r.Post("/logout", srv.logout)
			r.Get("/", srv.listUsers)
			r.Get("/{id}", srv.getUser)
			r.Get("/{id}/favorites", srv.listUserFavorites)
		})

		r.Get("/categories", srv.listCategories)

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", srv.listPosts)
			r.Post("/", srv.createPost)
			r.Get("/{id}", srv.getPost)
			r.Put("/{id}", srv.updatePost)
			r.Patch("/{id}", srv.updatePost)
			r.Delete("/{id}", srv.deletePost)
			r.Get("/{id}/comments", srv.listPostComments)
			r.Get("/{id}/likes", srv.listPostLikes)
			r.Post("/{id}/favorites", srv.addFavorite)
			r.Delete("/{id}/favorites", srv.removeFavorite)
		})

		r.Route("/comments", func(r chi.Router) {
			r.Post("/", srv.createComment)
			r.Get("/mine", srv.listOwnComments)
			r.Get("/{id}", srv.getComment)
			r.Delete("/{id}", srv.deleteComment)
		})

		r.Route("/likes", func(r chi.Router) {
			r.Post("/", srv.createLike)
			r.Get("/mine", srv.listOwnLikes)
			r.Delete("/{id}", srv.deleteLike)
		})
	})
}

func health(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "storage is unavailable")
			return
		}

		writeOK(w, http.StatusOK, Message{Message: "ok"})
	}
}

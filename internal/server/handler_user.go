package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	mm "github.com/plaza-net/plaza/internal/middleware"
	"github.com/plaza-net/plaza/internal/service"
)

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (s server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := req.Validate(); err != nil {
		translateError(r.Context(), w, err)
		return
	}

	u, err := s.s.Register(r.Context(), service.RegisterParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		translateError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusCreated, toAPIUser(u))
}

func (s server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := req.Validate(); err != nil {
		translateError(r.Context(), w, err)
		return
	}

	token, err := s.s.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		translateError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, TokenResponse{Token: token})
}

func (s server) logout(w http.ResponseWriter, r *http.Request) {
	caller := mm.CallerFromContext(r.Context())

	if err := s.s.Logout(r.Context(), caller, mm.SessionIDFromContext(r.Context())); err != nil {
		translateError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, Message{Message: "logged out"})
}

func (s server) listUsers(w http.ResponseWriter, r *http.Request) {
	uu, err := s.s.ListUsers(r.Context(), mm.CallerFromContext(r.Context()))
	if err != nil {
		translateError(r.Context(), w, err)
		return
	}

	out := make([]*UserListItem, len(uu))
	for i, u := range uu {
		out[i] = toAPIUserListItem(u)
	}

	writeOK(w, http.StatusOK, out)
}

func (s server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	u, err := s.s.GetUser(r.Context(), mm.CallerFromContext(r.Context()), id)
	if err != nil {
		translateError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, toAPIUser(u))
}

func (s server) listUserFavorites(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	vv, err := s.s.ListUserFavorites(r.Context(), mm.CallerFromContext(r.Context()), id)
	if err != nil {
		translateError(r.Context(), w, err)
		return
	}

	out := make([]*PostListItem, len(vv))
	for i, v := range vv {
		out[i] = toAPIPostListItem(v)
	}

	writeOK(w, http.StatusOK, out)
}

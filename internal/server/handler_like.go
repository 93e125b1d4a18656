package server

import (
	"encoding/json"
	"net/http"

	mm "github.com/plaza-net/plaza/internal/middleware"
)

func (s server) createLike(w http.ResponseWriter, r *http.Request) {
	var req createLikeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := req.Validate(); err != nil {
		translateError(r.Context(), w, err)
		return
	}

	l, err := s.s.CreateLike(r.Context(), mm.CallerFromContext(r.Context()), req.Post)
	if err != nil {
		translateError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusCreated, toAPILike(l))
}

func (s server) deleteLike(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.s.DeleteLike(r.Context(), mm.CallerFromContext(r.Context()), id); err != nil {
		translateError(r.Context(), w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s server) listOwnLikes(w http.ResponseWriter, r *http.Request) {
	ll, err := s.s.ListOwnLikes(r.Context(), mm.CallerFromContext(r.Context()))
	if err != nil {
		translateError(r.Context(), w, err)
		return
	}

	out := make([]*Like, len(ll))
	for i, l := range ll {
		out[i] = toAPILike(l)
	}

	writeOK(w, http.StatusOK, out)
}

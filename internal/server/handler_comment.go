package server

import (
	"encoding/json"
	"net/http"

	mm "github.com/plaza-net/plaza/internal/middleware"
	"github.com/plaza-net/plaza/internal/service"
)

func (s server) createComment(w http.ResponseWriter, r *http.Request) {
	var req createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := req.Validate(); err != nil {
		translateError(r.Context(), w, err)
		return
	}

	c, err := s.s.CreateComment(r.Context(), mm.CallerFromContext(r.Context()), service.CreateCommentParams{
		Post: req.Post,
		Body: req.Body,
	})
	if err != nil {
		translateError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusCreated, toAPIComment(c))
}

func (s server) getComment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	c, err := s.s.GetComment(r.Context(), mm.CallerFromContext(r.Context()), id)
	if err != nil {
		translateError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, toAPIComment(c))
}

func (s server) deleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.s.DeleteComment(r.Context(), mm.CallerFromContext(r.Context()), id); err != nil {
		translateError(r.Context(), w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s server) listOwnComments(w http.ResponseWriter, r *http.Request) {
	cc, err := s.s.ListOwnComments(r.Context(), mm.CallerFromContext(r.Context()))
	if err != nil {
		translateError(r.Context(), w, err)
		return
	}

	out := make([]*Comment, len(cc))
	for i, c := range cc {
		out[i] = toAPIComment(c)
	}

	writeOK(w, http.StatusOK, out)
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	mm "github.com/plaza-net/plaza/internal/middleware"
	"github.com/plaza-net/plaza/internal/service"
)

func (s server) listCategories(w http.ResponseWriter, r *http.Request) {
	cc, err := s.s.ListCategories(r.Context())
	if err != nil {
		translateError(r.Context(), w, err)
		return
	}

	out := make([]*Category, len(cc))
	for i, c := range cc {
		out[i] = &Category{ID: c.ID, Name: c.Name}
	}

	writeOK(w, http.StatusOK, out)
}

func (s server) listPosts(w http.ResponseWriter, r *http.Request) {
	params, err := extractListParamsFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	vv, err := s.s.ListPosts(r.Context(), mm.CallerFromContext(r.Context()), *params)
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

func (s server) createPost(w http.ResponseWriter, r *http.Request) {
	req, err := s.extractCreatePostRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := req.Validate(); err != nil {
		translateError(r.Context(), w, err)
		return
	}

	post, err := s.s.CreatePost(r.Context(), mm.CallerFromContext(r.Context()), service.CreatePostParams{
		Category:     req.Category,
		Title:        req.Title,
		Body:         req.Body,
		PreviewImage: req.PreviewImage,
		Images:       req.Images,
	})
	if err != nil {
		translateError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusCreated, toAPIPostWrite(post))
}

// extractCreatePostRequest reads the create payload from json or, for image
// uploads, from a multipart form whose files are stored first.
func (s server) extractCreatePostRequest(r *http.Request) (*createPostRequest, error) {
	var req createPostRequest

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errors.New("invalid json")
		}

		return &req, nil
	}

	if err := r.ParseMultipartForm(maxBodySize); err != nil {
		return nil, errors.New("invalid multipart form")
	}

	req.Title = r.FormValue("title")
	req.Body = r.FormValue("body")

	if v := r.FormValue("category"); v != "" {
		c, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.New("failed to parse category")
		}
		req.Category = c
	}

	if f, fh, err := r.FormFile("preview"); err == nil {
		url, err := s.f.Save(r.Context(), fh.Filename, f)
		f.Close()
		if err != nil {
			return nil, errors.New("failed to store preview image")
		}
		req.PreviewImage = url
	}

	for _, fh := range r.MultipartForm.File["images"] {
		f, err := fh.Open()
		if err != nil {
			return nil, errors.New("failed to read image")
		}

		url, err := s.f.Save(r.Context(), fh.Filename, f)
		f.Close()
		if err != nil {
			return nil, errors.New("failed to store image")
		}

		req.Images = append(req.Images, url)
	}

	return &req, nil
}

func (s server) getPost(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	d, err := s.s.GetPost(r.Context(), mm.CallerFromContext(r.Context()), id)
	if err != nil {
		translateError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, toAPIPostDetail(d))
}

func (s server) updatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req updatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := req.Validate(r.Method == http.MethodPut); err != nil {
		translateError(r.Context(), w, err)
		return
	}

	post, err := s.s.UpdatePost(r.Context(), mm.CallerFromContext(r.Context()), id, service.UpdatePostParams{
		Title:        req.Title,
		Body:         req.Body,
		Category:     req.Category,
		PreviewImage: req.PreviewImage,
	})
	if err != nil {
		translateError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, toAPIPostWrite(post))
}

func (s server) deletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.s.DeletePost(r.Context(), mm.CallerFromContext(r.Context()), id); err != nil {
		translateError(r.Context(), w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s server) listPostComments(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	cc, err := s.s.ListPostComments(r.Context(), mm.CallerFromContext(r.Context()), id)
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

func (s server) listPostLikes(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	ll, err := s.s.ListPostLikes(r.Context(), mm.CallerFromContext(r.Context()), id)
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

func (s server) addFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	err := s.s.SetFavorite(r.Context(), mm.CallerFromContext(r.Context()), id, true)
	if err != nil {
		// an existing favorite is an expected outcome of the toggle,
		// not a server fault
		if errors.Is(err, service.ErrAlreadyExists) {
			writeOK(w, http.StatusBadRequest, Message{Message: "already in favorites"})
			return
		}

		translateError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusCreated, Message{Message: "added to favorites"})
}

func (s server) removeFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	err := s.s.SetFavorite(r.Context(), mm.CallerFromContext(r.Context()), id, false)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found in favorites")
			return
		}

		translateError(r.Context(), w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func extractListParamsFromQuery(q map[string][]string) (*service.ListPostsParams, error) {
	get := func(k string) string {
		if v, ok := q[k]; ok && len(v) > 0 {
			return v[0]
		}
		return ""
	}

	out := service.ListPostsParams{Page: 1}

	if s := get("page"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil || v == 0 {
			return nil, errors.New("failed to parse page")
		}

		out.Page = v
	}

	if s := get("search"); s != "" {
		out.Search = &s
	}

	if s := get("owner"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errors.New("failed to parse owner")
		}

		out.Owner = &v
	}

	if s := get("category"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errors.New("failed to parse category")
		}

		out.Category = &v
	}

	return &out, nil
}

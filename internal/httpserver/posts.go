package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"

	"github.com/garcia/facebook-api/internal/domain"
)

// postRequest is the body of POST and PUT. A missing field decodes to nil and
// is stored as null.
type postRequest struct {
	Author   *string `json:"author"`
	Content  *string `json:"content"`
	ImageURL *string `json:"imageUrl"`
}

func (p postRequest) fields() domain.PostFields {
	return domain.PostFields{
		Author:   p.Author,
		Content:  p.Content,
		ImageURL: p.ImageURL,
	}
}

// patchPostRequest is the body of PATCH. Only fields that are present and
// non-null are applied.
type patchPostRequest struct {
	Author   nullable.Nullable[string] `json:"author"`
	Content  nullable.Nullable[string] `json:"content"`
	ImageURL nullable.Nullable[string] `json:"imageUrl"`
}

func (p patchPostRequest) patch() domain.PostPatch {
	return domain.PostPatch{
		Author:   presentValue(p.Author),
		Content:  presentValue(p.Content),
		ImageURL: presentValue(p.ImageURL),
	}
}

// presentValue returns nil for an absent or null field.
func presentValue(n nullable.Nullable[string]) *string {
	if !n.IsSpecified() || n.IsNull() {
		return nil
	}
	v, err := n.Get()
	if err != nil {
		return nil
	}
	return &v
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	post, err := s.posts.Create(r.Context(), req.fields())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	page, ok := s.parsePage(w, r)
	if !ok {
		return
	}

	posts, err := s.posts.List(r.Context(), page)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r)
	if !ok {
		return
	}

	post, err := s.posts.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleReplacePost(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r)
	if !ok {
		return
	}
	var req postRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	post, err := s.posts.Replace(r.Context(), id, req.fields())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handlePatchPost(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r)
	if !ok {
		return
	}
	var req patchPostRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	post, err := s.posts.Patch(r.Context(), id, req.patch())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r)
	if !ok {
		return
	}

	if err := s.posts.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.logger.Warn("invalid post id", "id", raw)
		writeError(w, http.StatusBadRequest, "InvalidRequest", "id must be an integer")
		return 0, false
	}
	return id, true
}

// parsePage returns a nil page unless both page and size are supplied. Each
// parameter that is present must still be an integer.
func (s *Server) parsePage(w http.ResponseWriter, r *http.Request) (*domain.PageRequest, bool) {
	q := r.URL.Query()
	page, hasPage, ok := s.queryInt(w, q.Get("page"), "page")
	if !ok {
		return nil, false
	}
	size, hasSize, ok := s.queryInt(w, q.Get("size"), "size")
	if !ok {
		return nil, false
	}
	if !hasPage || !hasSize {
		return nil, true
	}
	return &domain.PageRequest{Page: page, Size: size}, true
}

func (s *Server) queryInt(w http.ResponseWriter, raw, name string) (n int, present, ok bool) {
	if raw == "" {
		return 0, false, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		s.logger.Warn("invalid query parameter", "name", name, "value", raw, "error", err)
		writeError(w, http.StatusBadRequest, "InvalidRequest", name+" must be an integer")
		return 0, true, false
	}
	return n, true, true
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Warn("malformed request body", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadRequest, "InvalidRequest", "malformed JSON body")
		return false
	}
	return true
}

// writeServiceError maps service errors to responses. Lookup misses become
// 404, bad pagination 400, and anything else a bare 500 whose cause is only
// logged.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrPostNotFound):
		writeError(w, http.StatusNotFound, "NotFound", "post not found")
	case errors.Is(err, domain.ErrInvalidPage):
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "InternalError", "internal server error")
	}
}

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/thoughtmap/internal/checksum"
	"github.com/starford/thoughtmap/internal/thought"
	"github.com/starford/thoughtmap/internal/thoughtservice"
)

const maxBody = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *thoughtservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *thoughtservice.Service) *Handler {
	return &Handler{svc: svc}
}

// documentPath extracts the document path from the URL (everything after /api/documents/).
// Supports encoded slashes from OpenAPI clients (e.g. traces%2Fcache.yaml).
func documentPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// ListThoughts handles GET /api/thoughts.
//
//	@Summary		List the root thoughts of the forest
//	@Tags			thoughts
//	@Produce		json
//	@Success		200	{object}	ThoughtListResponse
//	@Security		BearerAuth
//	@Router			/thoughts [get]
func (h *Handler) ListThoughts(w http.ResponseWriter, r *http.Request) {
	roots, _ := h.svc.Forest()
	out := make([]ThoughtDetail, 0, len(roots))
	for _, n := range roots {
		d, err := h.svc.GetThought(r.Context(), n.ID)
		if err != nil {
			writeServiceError(w, "list thoughts", err, slog.String("id", n.ID))
			return
		}
		out = append(out, *d)
	}
	writeJSON(w, http.StatusOK, ThoughtListResponse{Thoughts: out})
}

// GetThought handles GET /api/thoughts/{id}.
//
//	@Summary		Get a single thought by id
//	@Tags			thoughts
//	@Produce		json
//	@Param			id	path		string	true	"Thought id"
//	@Success		200	{object}	ThoughtDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/thoughts/{id} [get]
func (h *Handler) GetThought(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := h.svc.GetThought(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get thought", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// UpdateStatus handles POST /api/thoughts/{id}/status.
//
//	@Summary		Set the evaluation status of a thought
//	@Tags			thoughts
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Thought id"
//	@Param			body	body		StatusRequest	true	"New status"
//	@Success		200		{object}	ThoughtDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/thoughts/{id}/status [post]
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req StatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := h.svc.UpdateStatus(r.Context(), id, thought.Status(req.Status))
	if err != nil {
		writeServiceError(w, "update status", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Memoize handles POST /api/thoughts/{id}/memoize.
//
//	@Summary		Memoize a thought under a key
//	@Tags			thoughts
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Thought id"
//	@Param			body	body		MemoizeRequest	true	"Memoization key"
//	@Success		200		{object}	ThoughtDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/thoughts/{id}/memoize [post]
func (h *Handler) Memoize(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req MemoizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := h.svc.Memoize(r.Context(), id, req.Key)
	if err != nil {
		writeServiceError(w, "memoize", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// AddSelfReference handles POST /api/thoughts/{id}/self-reference.
//
//	@Summary		Append a recursive reference to a thought
//	@Tags			thoughts
//	@Produce		json
//	@Param			id	path		string	true	"Thought id"
//	@Success		201	{object}	ThoughtDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/thoughts/{id}/self-reference [post]
func (h *Handler) AddSelfReference(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := h.svc.AddSelfReference(r.Context(), id)
	if err != nil {
		writeServiceError(w, "self reference", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List documents with optional pagination
//	@Tags			documents
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListDocuments(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, "list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: total})
}

// GetDocument handles GET /api/documents/*.
//
//	@Summary		Get a single document by path
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	doc, err := h.svc.GetDocument(r.Context(), path)
	if err != nil {
		writeServiceError(w, "get document", err, slog.String("path", path))
		return
	}
	w.Header().Set("ETag", checksum.ETag(doc.Checksum))
	writeJSON(w, http.StatusOK, doc)
}

// CreateDocument handles POST /api/documents.
//
//	@Summary		Create a new thought document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDocumentRequest	true	"Document to create"
//	@Success		201		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and content are required"))
		return
	}
	doc, err := h.svc.CreateDocument(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		writeServiceError(w, "create document", err, slog.String("path", req.Path))
		return
	}
	w.Header().Set("ETag", checksum.ETag(doc.Checksum))
	writeJSON(w, http.StatusCreated, doc)
}

// UpdateDocument handles PUT /api/documents/*.
//
//	@Summary		Replace a document with optimistic concurrency
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			path		path		string					true	"Document path"
//	@Param			If-Match	header		string					false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		UpdateDocumentRequest	true	"Updated content"
//	@Success		200			{object}	DocumentDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [put]
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req UpdateDocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	ifMatch := checksum.ParseETag(r.Header.Get("If-Match"))

	doc, err := h.svc.UpdateDocument(r.Context(), path, []byte(req.Content), ifMatch)
	if err != nil {
		writeServiceError(w, "update document", err, slog.String("path", path))
		return
	}
	w.Header().Set("ETag", checksum.ETag(doc.Checksum))
	writeJSON(w, http.StatusOK, doc)
}

// MoveDocument handles POST /api/documents/move.
//
//	@Summary		Rename a document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MoveDocumentRequest	true	"Source and destination paths"
//	@Success		200		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/move [post]
func (h *Handler) MoveDocument(w http.ResponseWriter, r *http.Request) {
	var req MoveDocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.From == "" || req.To == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("from and to are required"))
		return
	}
	doc, err := h.svc.MoveDocument(r.Context(), req.From, req.To)
	if err != nil {
		writeServiceError(w, "move document", err, slog.String("from", req.From), slog.String("to", req.To))
		return
	}
	w.Header().Set("ETag", checksum.ETag(doc.Checksum))
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/documents/*.
//
//	@Summary		Delete a document
//	@Tags			documents
//	@Param			path	path	string	true	"Document path"
//	@Success		204		"Document deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteDocument(r.Context(), path); err != nil {
		writeServiceError(w, "delete document", err, slog.String("path", path))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across thoughts
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeServiceError(w, "search", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

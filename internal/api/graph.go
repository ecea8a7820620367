package api

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/starford/thoughtmap/internal/view"
)

// GraphHandler serves the live surface.
type GraphHandler struct {
	surface *view.Surface
}

// NewGraphHandler creates a GraphHandler for surface.
func NewGraphHandler(surface *view.Surface) *GraphHandler {
	return &GraphHandler{surface: surface}
}

// Frame handles GET /api/graph.
//
//	@Summary		Get the current layout frame
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *GraphHandler) Frame(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.surface.Frame())
}

// SVG handles GET /api/graph.svg.
//
//	@Summary		Render the current layout as SVG
//	@Tags			graph
//	@Produce		image/svg+xml
//	@Success		200
//	@Security		BearerAuth
//	@Router			/graph.svg [get]
func (h *GraphHandler) SVG(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := h.surface.Render(&buf); err != nil {
		slog.Error("render svg failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// SetView handles PUT /api/graph/view.
//
//	@Summary		Change depth, highlight or size of the surface
//	@Tags			graph
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ViewRequest	true	"View changes"
//	@Success		200		{object}	GraphResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/graph/view [put]
func (h *GraphHandler) SetView(w http.ResponseWriter, r *http.Request) {
	var req ViewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.MaxDepth != nil && *req.MaxDepth < 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("max_depth must not be negative"))
		return
	}
	if (req.Width != nil && *req.Width <= 0) || (req.Height != nil && *req.Height <= 0) {
		writeJSON(w, http.StatusBadRequest, errorBody("width and height must be positive"))
		return
	}

	h.surface.UpdateProps(func(p *view.Props) {
		if req.MaxDepth != nil {
			p.MaxVisibleDepth = *req.MaxDepth
		}
		if req.Highlight != nil {
			p.HighlightedNodeID = *req.Highlight
		}
		if req.Width != nil {
			p.Width = *req.Width
		}
		if req.Height != nil {
			p.Height = *req.Height
		}
	})
	writeJSON(w, http.StatusOK, h.surface.Frame())
}

// Interact handles POST /api/graph/interactions.
//
//	@Summary		Send a pointer event to the surface
//	@Tags			graph
//	@Accept			json
//	@Produce		json
//	@Param			body	body		InteractionRequest	true	"Pointer event"
//	@Success		200		{object}	InteractionResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/graph/interactions [post]
func (h *GraphHandler) Interact(w http.ResponseWriter, r *http.Request) {
	var req InteractionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s := h.surface
	var hit bool
	switch req.Kind {
	case InteractionClick, InteractionHover, InteractionDragStart, InteractionDrag, InteractionDragEnd:
		if req.ID == "" {
			writeJSON(w, http.StatusBadRequest, errorBody("id is required for "+req.Kind))
			return
		}
	}
	switch req.Kind {
	case InteractionClick:
		hit = s.Click(req.ID)
	case InteractionHover:
		hit = s.Hover(req.ID)
	case InteractionHoverOut:
		s.HoverOut()
	case InteractionDragStart:
		hit = s.DragStart(req.ID)
	case InteractionDrag:
		hit = s.Drag(req.ID, req.X, req.Y)
	case InteractionDragEnd:
		hit = s.DragEnd(req.ID)
	case InteractionZoom:
		s.Zoom(req.K, req.X, req.Y)
	case InteractionPan:
		s.Pan(req.X, req.Y)
	case InteractionReheat:
		s.Reheat()
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("unknown interaction kind"))
		return
	}
	writeJSON(w, http.StatusOK, InteractionResponse{Hit: hit, Transform: s.Transform()})
}

package api

import (
	"github.com/starford/thoughtmap/internal/index"
	"github.com/starford/thoughtmap/internal/render"
	"github.com/starford/thoughtmap/internal/thoughtservice"
)

// CreateDocumentRequest is the request body for creating a document.
type CreateDocumentRequest struct {
	Path    string `json:"path" example:"traces/cache.yaml" validate:"required"`
	Content string `json:"content" example:"thoughts:\n  - id: q1\n    type: question" validate:"required"`
}

// UpdateDocumentRequest is the request body for replacing a document.
type UpdateDocumentRequest struct {
	Content string `json:"content" validate:"required"`
}

// MoveDocumentRequest renames a document within the vault.
type MoveDocumentRequest struct {
	From string `json:"from" example:"traces/cache.yaml" validate:"required"`
	To   string `json:"to" example:"archive/cache.yaml" validate:"required"`
}

// StatusRequest sets the evaluation status of a thought.
type StatusRequest struct {
	Status string `json:"status" example:"complete" validate:"required"`
}

// MemoizeRequest records a memoization key on a thought.
type MemoizeRequest struct {
	Key string `json:"key" example:"cache-miss" validate:"required"`
}

// ThoughtDetail is the full thought response type (aliased from the domain layer).
type ThoughtDetail = thoughtservice.ThoughtDetail

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = thoughtservice.DocumentDetail

// DocumentListItem is a lightweight item in a list response (aliased from the domain layer).
type DocumentListItem = thoughtservice.DocumentListItem

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []DocumentListItem `json:"documents" validate:"required"`
	Total     int                `json:"total" example:"42" validate:"required"`
}

// ThoughtListResponse wraps the root thoughts of the forest.
type ThoughtListResponse struct {
	Thoughts []ThoughtDetail `json:"thoughts" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// GraphResponse is one frame of the surface.
type GraphResponse = render.Frame

// ViewRequest changes what the surface shows. Absent fields keep their value.
type ViewRequest struct {
	MaxDepth  *int    `json:"max_depth,omitempty" example:"3"`
	Highlight *string `json:"highlight,omitempty" example:"q1"`
	Width     *int    `json:"width,omitempty" example:"1024"`
	Height    *int    `json:"height,omitempty" example:"768"`
}

// Interaction kinds accepted by POST /graph/interactions.
const (
	InteractionClick     = "click"
	InteractionHover     = "hover"
	InteractionHoverOut  = "hover-out"
	InteractionDragStart = "drag-start"
	InteractionDrag      = "drag"
	InteractionDragEnd   = "drag-end"
	InteractionZoom      = "zoom"
	InteractionPan       = "pan"
	InteractionReheat    = "reheat"
)

// InteractionRequest is one pointer event on the surface. X and Y are layout
// coordinates for drags, screen coordinates for zoom and deltas for pan.
type InteractionRequest struct {
	Kind string  `json:"kind" example:"drag" validate:"required"`
	ID   string  `json:"id,omitempty" example:"q1"`
	X    float64 `json:"x,omitempty"`
	Y    float64 `json:"y,omitempty"`
	K    float64 `json:"k,omitempty" example:"1.5"`
}

// InteractionResponse reports whether the event hit a node and the transform
// after it.
type InteractionResponse struct {
	Hit       bool             `json:"hit"`
	Transform render.Transform `json:"transform"`
}

package render

import (
	"math"

	"github.com/starford/thoughtmap/internal/graphview"
)

// Zoom bounds of the canvas transform.
const (
	MinZoom = 0.1
	MaxZoom = 4.0
)

// Transform is the pan/zoom applied to the whole canvas. It does not affect
// node positions.
type Transform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

// Identity is the untransformed canvas.
var Identity = Transform{K: 1}

// Clamp bounds the zoom factor.
func (t Transform) Clamp() Transform {
	switch {
	case t.K < MinZoom:
		t.K = MinZoom
	case t.K > MaxZoom:
		t.K = MaxZoom
	case math.IsNaN(t.K):
		t.K = 1
	}
	return t
}

// Invert maps a screen point back into layout coordinates.
func (t Transform) Invert(x, y float64) (float64, float64) {
	return (x - t.X) / t.K, (y - t.Y) / t.K
}

// NodeFrame is a positioned node with its render attributes.
type NodeFrame struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Tooltip     string  `json:"tooltip"`
	Type        string  `json:"type"`
	Status      string  `json:"status"`
	Depth       int     `json:"depth"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Radius      float64 `json:"radius"`
	Fill        string  `json:"fill"`
	Border      Stroke  `json:"border"`
	Opacity     float64 `json:"opacity"`
	Badge       string  `json:"badge,omitempty"`
	Reflexive   bool    `json:"reflexive"`
	Pinned      bool    `json:"pinned"`
	Highlighted bool    `json:"highlighted"`
}

// LinkFrame is a positioned link with its style.
type LinkFrame struct {
	Source  string    `json:"source"`
	Target  string    `json:"target"`
	IsAlias bool      `json:"is_alias"`
	X1      float64   `json:"x1"`
	Y1      float64   `json:"y1"`
	X2      float64   `json:"x2"`
	Y2      float64   `json:"y2"`
	Style   LinkStyle `json:"style"`
}

// Frame is one snapshot of the surface.
type Frame struct {
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Transform Transform       `json:"transform"`
	Alpha     float64         `json:"alpha"`
	Stats     graphview.Stats `json:"stats"`
	Nodes     []NodeFrame     `json:"nodes"`
	Links     []LinkFrame     `json:"links"`
}

// FrameOptions carries the surface state that is not part of the graph.
type FrameOptions struct {
	Width     int
	Height    int
	Highlight string
	Transform Transform
	Alpha     float64
	Scale     Scale
}

// NewFrame snapshots g. Positions are copied, so the frame stays valid while
// the layout keeps moving.
func NewFrame(g *graphview.Graph, opts FrameOptions) Frame {
	if opts.Scale == (Scale{}) {
		opts.Scale = DefaultScale
	}
	if opts.Transform.K == 0 {
		opts.Transform = Identity
	}
	f := Frame{
		Width:     opts.Width,
		Height:    opts.Height,
		Transform: opts.Transform,
		Alpha:     opts.Alpha,
		Stats:     g.Stats(),
		Nodes:     make([]NodeFrame, 0, len(g.Nodes)),
		Links:     make([]LinkFrame, 0, len(g.Links)),
	}
	for _, n := range g.Nodes {
		t := n.Thought
		highlighted := opts.Highlight != "" && n.ID == opts.Highlight
		nf := NodeFrame{
			ID:          n.ID,
			Label:       Label(t.Content),
			Tooltip:     Tooltip(t),
			Type:        string(t.Type),
			Status:      string(t.Metadata.EvaluationStatus),
			Depth:       t.Metadata.RecursionDepth,
			X:           n.X,
			Y:           n.Y,
			Radius:      opts.Scale.Of(t),
			Fill:        Fill(t.Type),
			Border:      Border(highlighted),
			Opacity:     Opacity(t.Metadata.EvaluationStatus),
			Reflexive:   n.Reflexive,
			Pinned:      n.Pinned(),
			Highlighted: highlighted,
		}
		if c, ok := Badge(t.Metadata.EvaluationStatus); ok {
			nf.Badge = c
		}
		f.Nodes = append(f.Nodes, nf)
	}
	for _, l := range g.Links {
		f.Links = append(f.Links, LinkFrame{
			Source:  l.Source.ID,
			Target:  l.Target.ID,
			IsAlias: l.IsAlias,
			X1:      l.Source.X,
			Y1:      l.Source.Y,
			X2:      l.Target.X,
			Y2:      l.Target.Y,
			Style:   LinkStyleFor(l.IsAlias),
		})
	}
	return f
}

// Node returns the frame node with id.
func (f Frame) Node(id string) (NodeFrame, bool) {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeFrame{}, false
}

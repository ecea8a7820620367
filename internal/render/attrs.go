// Package render computes the visual attributes of flattened thoughts and
// writes positioned graphs as SVG.
package render

import (
	"fmt"

	"github.com/starford/thoughtmap/internal/graphview"
	"github.com/starford/thoughtmap/internal/thought"
)

// Label truncation.
const (
	LabelBudget = 20
	labelKeep   = 17
	ellipsis    = "..."
)

// BadgeRadius is the radius of the status badge.
const BadgeRadius = 4.0

// Colors that are not part of the type palette.
const (
	HighlightColor = "#FFD700"
	BorderColor    = "#FFFFFF"
	UnknownColor   = "#CCCCCC"
	AliasColor     = "#FF6B6B"
	LinkColor      = "#999"
)

var palette = map[thought.Type]string{
	thought.TypeQuestion:           "#4A90E2",
	thought.TypeHypothesis:         "#F5A623",
	thought.TypeEvaluation:         "#7ED321",
	thought.TypeConclusion:         "#9013FE",
	thought.TypeMetaReflection:     "#D0021B",
	thought.TypeRecursiveReference: "#50E3C2",
}

var badges = map[thought.Status]string{
	thought.StatusComplete:   "#7ED321",
	thought.StatusInProgress: "#F5A623",
	thought.StatusError:      "#D0021B",
	thought.StatusMemoized:   "#9B9B9B",
}

// Scale maps recursion depth to node radius. Deeper thoughts draw larger and
// claim a larger collision radius.
type Scale struct {
	Base     float64
	PerDepth float64
}

// DefaultScale is 10 + 2 per level of recursion.
var DefaultScale = Scale{Base: 10, PerDepth: 2}

// Of returns the radius of t.
func (s Scale) Of(t *thought.Node) float64 {
	if t == nil {
		return s.Base
	}
	return s.Base + float64(t.Metadata.RecursionDepth)*s.PerDepth
}

// Node returns the radius of a graph node, suitable as a collision radius.
func (s Scale) Node(n *graphview.GraphNode) float64 {
	return s.Of(n.Thought)
}

// Radius returns the default radius of t.
func Radius(t *thought.Node) float64 {
	return DefaultScale.Of(t)
}

// Fill returns the palette color for typ.
func Fill(typ thought.Type) string {
	if c, ok := palette[typ]; ok {
		return c
	}
	return UnknownColor
}

// Stroke is a color and line width.
type Stroke struct {
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

// Border returns the node outline.
func Border(highlighted bool) Stroke {
	if highlighted {
		return Stroke{Color: HighlightColor, Width: 3}
	}
	return Stroke{Color: BorderColor, Width: 1.5}
}

// Opacity de-emphasizes memoized thoughts.
func Opacity(s thought.Status) float64 {
	if s == thought.StatusMemoized {
		return 0.6
	}
	return 1
}

// Badge returns the status badge color. Pending thoughts have no badge.
func Badge(s thought.Status) (string, bool) {
	c, ok := badges[s]
	return c, ok
}

// BadgeOffset places the badge on the upper right of a node of radius r.
func BadgeOffset(r float64) (float64, float64) {
	return r * 0.7, -r * 0.7
}

// Label truncates content to the label budget.
func Label(content string) string {
	runes := []rune(content)
	if len(runes) <= LabelBudget {
		return content
	}
	return string(runes[:labelKeep]) + ellipsis
}

// Tooltip is the hover text of t.
func Tooltip(t *thought.Node) string {
	return fmt.Sprintf("%s\nType: %s\nStatus: %s\nDepth: %d",
		t.Content, t.Type, t.Metadata.EvaluationStatus, t.Metadata.RecursionDepth)
}

// LinkStyle describes how a link is stroked.
type LinkStyle struct {
	Stroke
	Dash   string `json:"dash,omitempty"`
	Marker string `json:"marker"`
	Curved bool   `json:"curved"`
}

// LinkStyleFor returns the style of an alias or structural link.
func LinkStyleFor(alias bool) LinkStyle {
	if alias {
		return LinkStyle{
			Stroke: Stroke{Color: AliasColor, Width: 2},
			Dash:   "5,5",
			Marker: "arrow-alias",
			Curved: true,
		}
	}
	return LinkStyle{
		Stroke: Stroke{Color: LinkColor, Width: 1.5},
		Marker: "arrow",
	}
}

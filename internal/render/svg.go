package render

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"math"
)

// SVG writes f as a standalone SVG document.
func SVG(w io.Writer, f Frame) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) {
		fmt.Fprintf(bw, format, args...)
	}

	p(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		f.Width, f.Height, f.Width, f.Height)
	p("<defs>\n")
	writeMarker(bw, "arrow", LinkColor)
	writeMarker(bw, "arrow-alias", AliasColor)
	p("</defs>\n")

	t := f.Transform
	if t.K == 0 {
		t = Identity
	}
	p(`<g class="zoom" transform="translate(%s,%s) scale(%s)">`+"\n", num(t.X), num(t.Y), num(t.K))

	p(`<g class="links">` + "\n")
	for _, l := range f.Links {
		writeLink(bw, l)
	}
	p("</g>\n")

	p(`<g class="nodes">` + "\n")
	for _, n := range f.Nodes {
		writeNode(bw, n)
	}
	p("</g>\n")

	p("</g>\n</svg>\n")
	return bw.Flush()
}

func writeMarker(w io.Writer, id, color string) {
	fmt.Fprintf(w, `<marker id="%s" viewBox="0 -5 10 10" refX="20" refY="0" markerWidth="6" markerHeight="6" orient="auto">`+
		`<path d="M0,-5L10,0L0,5" fill="%s"/></marker>`+"\n", id, color)
}

func writeLink(w io.Writer, l LinkFrame) {
	s := l.Style
	dash := ""
	if s.Dash != "" {
		dash = fmt.Sprintf(` stroke-dasharray="%s"`, s.Dash)
	}
	if s.Curved {
		// Arc with radius equal to the chord length.
		r := math.Hypot(l.X2-l.X1, l.Y2-l.Y1)
		fmt.Fprintf(w, `<path class="link alias" d="M%s,%s A%s,%s 0 0,1 %s,%s" fill="none" stroke="%s" stroke-width="%s"%s marker-end="url(#%s)"/>`+"\n",
			num(l.X1), num(l.Y1), num(r), num(r), num(l.X2), num(l.Y2), s.Color, num(s.Width), dash, s.Marker)
		return
	}
	fmt.Fprintf(w, `<line class="link" x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="%s"%s marker-end="url(#%s)"/>`+"\n",
		num(l.X1), num(l.Y1), num(l.X2), num(l.Y2), s.Color, num(s.Width), dash, s.Marker)
}

func writeNode(w io.Writer, n NodeFrame) {
	fmt.Fprintf(w, `<g class="node" data-id="%s" transform="translate(%s,%s)" opacity="%s">`+"\n",
		html.EscapeString(n.ID), num(n.X), num(n.Y), num(n.Opacity))
	fmt.Fprintf(w, `<circle r="%s" fill="%s" stroke="%s" stroke-width="%s"/>`+"\n",
		num(n.Radius), n.Fill, n.Border.Color, num(n.Border.Width))
	if n.Badge != "" {
		bx, by := BadgeOffset(n.Radius)
		fmt.Fprintf(w, `<circle class="badge" cx="%s" cy="%s" r="%s" fill="%s"/>`+"\n",
			num(bx), num(by), num(BadgeRadius), n.Badge)
	}
	fmt.Fprintf(w, `<text dy="%s" text-anchor="middle" font-size="12">%s</text>`+"\n",
		num(n.Radius+14), html.EscapeString(n.Label))
	fmt.Fprintf(w, "<title>%s</title>\n", html.EscapeString(n.Tooltip))
	fmt.Fprint(w, "</g>\n")
}

// num formats coordinates compactly: two decimals, no trailing zeros.
func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	s := fmt.Sprintf("%.2f", v)
	for s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	if s == "-0" {
		s = "0"
	}
	return s
}

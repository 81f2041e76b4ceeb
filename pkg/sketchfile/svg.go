package sketchfile

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/ha1tch/sketch-toolkit/pkg/element"
	"github.com/ha1tch/sketch-toolkit/pkg/geom"
)

// SVGOptions controls SVG export.
type SVGOptions struct {
	Width       int     // canvas width in pixels
	Height      int     // canvas height in pixels
	Padding     float64 // scene units around the content
	StrokeWidth float64
	ShowFocus   bool // mark binding focus points
	Title       string
}

// DefaultSVGOptions returns sensible defaults.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		Width:       1024,
		Height:      768,
		Padding:     20,
		StrokeWidth: 2,
	}
}

// GenerateSVG renders the elements to an SVG document. Elements keep their
// scene coordinates; the viewBox frames the content.
func GenerateSVG(els []element.Element, opts SVGOptions) string {
	if opts.Width == 0 {
		opts.Width = 1024
	}
	if opts.Height == 0 {
		opts.Height = 768
	}
	if opts.StrokeWidth == 0 {
		opts.StrokeWidth = 2
	}

	e := sceneExtent(els)
	if e.empty {
		e.add(geom.Pt(0, 0), geom.Pt(100, 100))
	}
	vx, vy := e.minX-opts.Padding, e.minY-opts.Padding
	vw := math.Max(e.maxX-e.minX, 1) + 2*opts.Padding
	vh := math.Max(e.maxY-e.minY, 1) + 2*opts.Padding

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="%s %s %s %s">`+"\n",
		opts.Width, opts.Height, num(vx), num(vy), num(vw), num(vh))
	if opts.Title != "" {
		fmt.Fprintf(&sb, "  <title>%s</title>\n", html.EscapeString(opts.Title))
	}
	sb.WriteString("  <defs>\n")
	sb.WriteString(`    <marker id="arrowhead" markerWidth="10" markerHeight="7" refX="10" refY="3.5" orient="auto">` + "\n")
	sb.WriteString(`      <polygon points="0 0, 10 3.5, 0 7" fill="#1e1e1e"/>` + "\n")
	sb.WriteString("    </marker>\n")
	sb.WriteString("  </defs>\n")
	fmt.Fprintf(&sb, `  <rect x="%s" y="%s" width="%s" height="%s" fill="white"/>`+"\n",
		num(vx), num(vy), num(vw), num(vh))

	for _, el := range els {
		if el.Common().IsDeleted {
			continue
		}
		switch v := el.(type) {
		case *element.Shape:
			writeShape(&sb, v, opts.StrokeWidth)
		case *element.Linear:
			writeLinear(&sb, v, opts)
		case *element.Text:
			fmt.Fprintf(&sb, `  <text id="%s" x="%s" y="%s" font-family="sans-serif" font-size="%s" dominant-baseline="hanging" fill="#1e1e1e">%s</text>`+"\n",
				v.ID, num(v.X), num(v.Y), num(v.FontSize), html.EscapeString(v.Text))
		}
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

func writeShape(sb *strings.Builder, s *element.Shape, stroke float64) {
	strokeColor := "#1e1e1e"
	if len(s.BoundElementIDs) > 0 {
		strokeColor = "#1971c2"
	}
	attrs := fmt.Sprintf(`id="%s" fill="#e7f5ff" stroke="%s" stroke-width="%s"`, s.ID, strokeColor, num(stroke))
	if s.Angle != 0 {
		c := s.Center()
		attrs += fmt.Sprintf(` transform="rotate(%s %s %s)"`, num(s.Angle*180/math.Pi), num(c.X), num(c.Y))
	}

	switch s.Type {
	case element.TypeEllipse:
		c := s.Center()
		fmt.Fprintf(sb, "  <ellipse %s cx=\"%s\" cy=\"%s\" rx=\"%s\" ry=\"%s\"/>\n",
			attrs, num(c.X), num(c.Y), num(s.Width/2), num(s.Height/2))
	case element.TypeDiamond:
		fmt.Fprintf(sb, "  <polygon %s points=\"%s\"/>\n", attrs, pointList(s.Outline()))
	default:
		fmt.Fprintf(sb, "  <rect %s x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\"/>\n",
			attrs, num(s.X), num(s.Y), num(s.Width), num(s.Height))
	}
}

func writeLinear(sb *strings.Builder, l *element.Linear, opts SVGOptions) {
	marker := ""
	if l.Type == element.TypeArrow {
		marker = ` marker-end="url(#arrowhead)"`
	}
	fmt.Fprintf(sb, "  <polyline id=\"%s\" points=\"%s\" fill=\"none\" stroke=\"#1e1e1e\" stroke-width=\"%s\"%s/>\n",
		l.ID, pointList(l.AbsolutePoints()), num(opts.StrokeWidth), marker)

	if !opts.ShowFocus {
		return
	}
	for _, b := range []*element.Binding{l.StartBinding, l.EndBinding} {
		if b == nil {
			continue
		}
		fmt.Fprintf(sb, "  <circle class=\"focus\" cx=\"%s\" cy=\"%s\" r=\"3\" fill=\"#e03131\"/>\n",
			num(b.FocusPoint.X), num(b.FocusPoint.Y))
	}
}

func pointList(pts []geom.Point) string {
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = num(p.X) + "," + num(p.Y)
	}
	return strings.Join(parts, " ")
}

// num formats a coordinate with at most two decimals.
func num(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		s = "0"
	}
	return s
}

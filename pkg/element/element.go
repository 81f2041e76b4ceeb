// Package element provides the scene element types: bindable shapes,
// linear elements (lines and arrows) and text.
package element

import (
	"math"

	"github.com/google/uuid"

	"github.com/ha1tch/sketch-toolkit/pkg/geom"
)

// Type identifies the element variant.
type Type string

const (
	TypeRectangle Type = "rectangle"
	TypeEllipse   Type = "ellipse"
	TypeDiamond   Type = "diamond"
	TypeLine      Type = "line"
	TypeArrow     Type = "arrow"
	TypeText      Type = "text"
)

// IsShape reports whether t is a closed shape type.
func (t Type) IsShape() bool {
	return t == TypeRectangle || t == TypeEllipse || t == TypeDiamond
}

// IsLinear reports whether t is a line or arrow.
func (t Type) IsLinear() bool {
	return t == TypeLine || t == TypeArrow
}

// Element is implemented by every scene element variant.
type Element interface {
	Common() *Base
}

// Base holds the fields shared by all elements.
type Base struct {
	ID              string   `json:"id"`
	Type            Type     `json:"type"`
	X               float64  `json:"x"`
	Y               float64  `json:"y"`
	Width           float64  `json:"width"`
	Height          float64  `json:"height"`
	Angle           float64  `json:"angle"` // radians, about the centre
	Version         int      `json:"version"`
	VersionNonce    uint32   `json:"versionNonce"`
	IsDeleted       bool     `json:"isDeleted"`
	BoundElementIDs []string `json:"boundElementIds,omitempty"` // linear elements bound to this one
}

// Common returns the shared fields.
func (b *Base) Common() *Base {
	return b
}

// Center returns the centre of the element's bounding box.
func (b *Base) Center() geom.Point {
	return geom.Pt(b.X+b.Width/2, b.Y+b.Height/2)
}

// Contains reports whether p lies inside the unrotated bounding box.
func (b *Base) Contains(p geom.Point) bool {
	return p.X >= b.X && p.X <= b.X+b.Width &&
		p.Y >= b.Y && p.Y <= b.Y+b.Height
}

// Shape is a closed bindable shape: rectangle, ellipse or diamond.
type Shape struct {
	Base
}

// Text is a free-standing text label. Text is never a binding target.
type Text struct {
	Base
	Text     string  `json:"text"`
	FontSize float64 `json:"fontSize"`
}

// Binding records how one endpoint of a linear element tracks a shape.
type Binding struct {
	ElementID  string     `json:"elementId"`
	FocusPoint geom.Point `json:"focusPoint"`
	Gap        float64    `json:"gap"`
}

// Endpoint selects one end of a linear element.
type Endpoint int

const (
	Start Endpoint = iota // points[0]
	End                   // points[len-1]
)

// String returns the endpoint name.
func (e Endpoint) String() string {
	if e == Start {
		return "start"
	}
	return "end"
}

// Linear is a polyline or arrow. Points are relative to (X, Y).
type Linear struct {
	Base
	Points       []geom.Point `json:"points"`
	StartBinding *Binding     `json:"startBinding"`
	EndBinding   *Binding     `json:"endBinding"`
}

// AbsolutePoints returns the points in scene coordinates.
func (l *Linear) AbsolutePoints() []geom.Point {
	pts := make([]geom.Point, len(l.Points))
	for i, p := range l.Points {
		pts[i] = geom.Pt(l.X+p.X, l.Y+p.Y)
	}
	return pts
}

// EdgeSegment returns the terminal segment for ep in scene coordinates,
// directed from the interior point toward the edge point.
// The caller guarantees at least two points.
func (l *Linear) EdgeSegment(ep Endpoint) (adjacent, edge geom.Point) {
	edgeIdx, adjIdx := 0, 1
	if ep == End {
		edgeIdx = len(l.Points) - 1
		adjIdx = edgeIdx - 1
	}
	origin := geom.Pt(l.X, l.Y)
	return l.Points[adjIdx].Add(origin), l.Points[edgeIdx].Add(origin)
}

// Binding returns the binding record for ep, or nil.
func (l *Linear) Binding(ep Endpoint) *Binding {
	if ep == Start {
		return l.StartBinding
	}
	return l.EndBinding
}

// NewID returns a fresh element identifier.
func NewID() string {
	return uuid.NewString()
}

// NewShape creates a shape of type t covering the given box.
// Negative sizes are normalised so Width and Height are never negative.
func NewShape(t Type, x, y, width, height float64) *Shape {
	s := &Shape{Base: Base{
		ID:           NewID(),
		Type:         t,
		X:            x,
		Y:            y,
		Width:        width,
		Height:       height,
		Version:      1,
		VersionNonce: newNonce(),
	}}
	s.Normalize()
	return s
}

// Normalize moves a negative width or height into the origin so the
// bounding box keeps the same area with non-negative extents.
func (s *Shape) Normalize() {
	if s.Width < 0 {
		s.X, s.Width = s.X+s.Width, -s.Width
	}
	if s.Height < 0 {
		s.Y, s.Height = s.Y+s.Height, -s.Height
	}
}

// NewLinear creates a line or arrow from scene-space points.
// The element origin is the first point; stored points are relative to it.
func NewLinear(t Type, points ...geom.Point) *Linear {
	l := &Linear{Base: Base{
		ID:           NewID(),
		Type:         t,
		Version:      1,
		VersionNonce: newNonce(),
	}}
	if len(points) > 0 {
		l.X, l.Y = points[0].X, points[0].Y
	}
	l.Points = make([]geom.Point, len(points))
	for i, p := range points {
		l.Points[i] = geom.Pt(p.X-l.X, p.Y-l.Y)
	}
	l.updateBounds()
	return l
}

// NewText creates a text element at (x, y).
func NewText(x, y float64, text string, fontSize float64) *Text {
	return &Text{
		Base: Base{
			ID:           NewID(),
			Type:         TypeText,
			X:            x,
			Y:            y,
			Width:        float64(len([]rune(text))) * fontSize * 0.6,
			Height:       fontSize * 1.25,
			Version:      1,
			VersionNonce: newNonce(),
		},
		Text:     text,
		FontSize: fontSize,
	}
}

// updateBounds recomputes Width and Height from the relative points.
func (l *Linear) updateBounds() {
	if len(l.Points) == 0 {
		l.Width, l.Height = 0, 0
		return
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range l.Points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	l.Width = maxX - minX
	l.Height = maxY - minY
}

// AddBoundID returns ids with id added, keeping set semantics.
// The input slice is never modified.
func AddBoundID(ids []string, id string) []string {
	result := make([]string, 0, len(ids)+1)
	seen := make(map[string]bool, len(ids)+1)
	for _, existing := range append(ids[:len(ids):len(ids)], id) {
		if seen[existing] {
			continue
		}
		seen[existing] = true
		result = append(result, existing)
	}
	return result
}

// HasBoundID reports whether ids contains id.
func HasBoundID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of el.
func Clone(el Element) Element {
	switch e := el.(type) {
	case *Shape:
		c := *e
		c.Base = cloneBase(e.Base)
		return &c
	case *Linear:
		c := *e
		c.Base = cloneBase(e.Base)
		c.Points = append([]geom.Point(nil), e.Points...)
		c.StartBinding = cloneBinding(e.StartBinding)
		c.EndBinding = cloneBinding(e.EndBinding)
		return &c
	case *Text:
		c := *e
		c.Base = cloneBase(e.Base)
		return &c
	}
	return el
}

func cloneBase(b Base) Base {
	if b.BoundElementIDs != nil {
		b.BoundElementIDs = append([]string(nil), b.BoundElementIDs...)
	}
	return b
}

func cloneBinding(b *Binding) *Binding {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

package element

import (
	"math"

	"github.com/ha1tch/sketch-toolkit/pkg/geom"
)

// Bindable is the capability of serving as a binding target: a border
// proximity test and an outline intersection.
type Bindable interface {
	Element
	// BindingBorderTest reports whether p lies within threshold of the outline.
	BindingBorderTest(p geom.Point, threshold float64) bool
	// IntersectLine intersects the infinite line through a and b with the
	// outline, returning points ordered along a→b.
	IntersectLine(a, b geom.Point) []geom.Point
}

// AsBindable returns el as a Bindable if it has the capability.
func AsBindable(el Element) (Bindable, bool) {
	if el == nil {
		return nil, false
	}
	b, ok := el.(Bindable)
	return b, ok
}

// IsBindable reports whether el can be a binding target.
func IsBindable(el Element) bool {
	_, ok := AsBindable(el)
	return ok
}

// toLocal maps a scene point into the shape's unrotated frame.
func (s *Shape) toLocal(p geom.Point) geom.Point {
	return geom.Rotate(p, s.Center(), -s.Angle)
}

// fromLocal maps a point in the unrotated frame back to the scene.
func (s *Shape) fromLocal(p geom.Point) geom.Point {
	return geom.Rotate(p, s.Center(), s.Angle)
}

// Outline returns the polygon vertices of a rectangle or diamond in the
// unrotated frame. Ellipses have no vertices.
func (s *Shape) Outline() []geom.Point {
	x, y, w, h := s.X, s.Y, s.Width, s.Height
	switch s.Type {
	case TypeDiamond:
		return []geom.Point{
			{X: x + w/2, Y: y},
			{X: x + w, Y: y + h/2},
			{X: x + w/2, Y: y + h},
			{X: x, Y: y + h/2},
		}
	case TypeEllipse:
		return nil
	default:
		return []geom.Point{
			{X: x, Y: y},
			{X: x + w, Y: y},
			{X: x + w, Y: y + h},
			{X: x, Y: y + h},
		}
	}
}

// DistanceToOutline returns the distance from a scene point to the outline.
// Points inside the shape measure to the nearest edge.
func (s *Shape) DistanceToOutline(p geom.Point) float64 {
	local := s.toLocal(p)
	if s.Type == TypeEllipse {
		return geom.DistanceToEllipse(local, s.Center(), s.Width/2, s.Height/2)
	}
	return geom.DistanceToPolygon(local, s.Outline())
}

// BindingBorderTest reports whether p lies within threshold of the outline.
func (s *Shape) BindingBorderTest(p geom.Point, threshold float64) bool {
	return s.DistanceToOutline(p) <= threshold
}

// IntersectLine intersects the infinite line through a and b with the outline.
func (s *Shape) IntersectLine(a, b geom.Point) []geom.Point {
	la, lb := s.toLocal(a), s.toLocal(b)

	var local []geom.Point
	if s.Type == TypeEllipse {
		local = geom.LineIntersectEllipse(la, lb, s.Center(), s.Width/2, s.Height/2)
	} else {
		local = geom.LineIntersectPolygon(la, lb, s.Outline())
	}

	if s.Angle == 0 {
		return local
	}
	result := make([]geom.Point, len(local))
	for i, p := range local {
		result[i] = s.fromLocal(p)
	}
	return result
}

// Tolerance controls how close to an outline a pointer must be to bind.
type Tolerance struct {
	MinGap float64 // screen units; divided by zoom
	MaxGap float64 // scene units
	Ratio  float64 // fraction of the smaller dimension
}

// DefaultTolerance returns the standard binding tolerance.
func DefaultTolerance() Tolerance {
	return Tolerance{MinGap: 15, MaxGap: 80, Ratio: 0.25}
}

// Threshold returns the border-test distance for b at the given zoom.
// Bigger shapes get a wider band, capped at MaxGap, never below MinGap/zoom.
func (t Tolerance) Threshold(b Bindable, zoom float64) float64 {
	base := b.Common()
	if zoom <= 0 {
		zoom = 1
	}

	// Aligns diamonds with rectangles
	shapeRatio := 1.0
	if base.Type == TypeDiamond {
		shapeRatio = 1 / math.Sqrt2
	}
	smaller := shapeRatio * math.Min(math.Abs(base.Width), math.Abs(base.Height))

	return math.Max(t.MinGap/zoom, math.Min(t.Ratio*smaller, t.MaxGap))
}

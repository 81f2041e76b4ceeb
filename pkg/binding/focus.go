// Package binding attaches the endpoints of lines and arrows to the shapes
// they touch. It finds the shape under the pointer, computes where an
// endpoint is aimed on that shape, and records the binding on both sides.
package binding

import (
	"math"

	"github.com/ha1tch/sketch-toolkit/pkg/element"
	"github.com/ha1tch/sketch-toolkit/pkg/geom"
	"github.com/ha1tch/sketch-toolkit/pkg/scene"
)

// Finder is the element query used for hit testing. *scene.Scene satisfies it.
type Finder interface {
	ElementAtPosition(x, y float64, match scene.Predicate) element.Element
}

// Focus is where a bound endpoint aims and how far it stands off the outline.
type Focus struct {
	Point geom.Point
	Gap   float64

	// Crossings is the number of outline intersections found; below two the
	// focus fell back to the edge point.
	Crossings int
}

// FindBoundTarget returns the topmost bindable element whose border band
// contains p, or nil. The band width comes from state's tolerance and zoom.
func FindBoundTarget(f Finder, state scene.AppState, p geom.Point) element.Bindable {
	hit := f.ElementAtPosition(p.X, p.Y, func(el element.Element, x, y float64) bool {
		b, ok := element.AsBindable(el)
		if !ok {
			return false
		}
		return b.BindingBorderTest(geom.Pt(x, y), state.Threshold(b))
	})
	b, _ := element.AsBindable(hit)
	return b
}

// ComputeFocus computes the focus and gap for endpoint ep of l bound to
// shape. The terminal segment is extended into an infinite line and crossed
// with the outline. With two crossings the focus is their midpoint and the
// gap is the nearer crossing's distance to the edge point. Otherwise the
// focus is the edge point itself with zero gap.
func ComputeFocus(l *element.Linear, shape element.Bindable, ep element.Endpoint) Focus {
	adjacent, edge := l.EdgeSegment(ep)

	hits := shape.IntersectLine(adjacent, edge)
	if len(hits) < 2 {
		return Focus{Point: edge, Gap: 0, Crossings: len(hits)}
	}

	first, second := hits[0], hits[1]
	return Focus{
		Point:     geom.CenterPoint(first, second),
		Gap:       math.Min(geom.Distance(first, edge), geom.Distance(second, edge)),
		Crossings: len(hits),
	}
}

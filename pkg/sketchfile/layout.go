package sketchfile

import (
	"math"

	"github.com/ha1tch/sketch-toolkit/pkg/element"
	"github.com/ha1tch/sketch-toolkit/pkg/geom"
)

// ellipseSegments is the number of polygon sides used to trace an ellipse.
const ellipseSegments = 72

// Outline returns a shape's outline as a closed polygon in scene
// coordinates, rotation applied. Ellipses are traced with straight segments.
func Outline(s *element.Shape) []geom.Point {
	var pts []geom.Point
	if s.Type == element.TypeEllipse {
		c := s.Center()
		rx, ry := s.Width/2, s.Height/2
		pts = make([]geom.Point, ellipseSegments)
		for i := range pts {
			a := 2 * math.Pi * float64(i) / ellipseSegments
			pts[i] = geom.Pt(c.X+rx*math.Cos(a), c.Y+ry*math.Sin(a))
		}
	} else {
		pts = s.Outline()
	}

	if s.Angle != 0 {
		c := s.Center()
		for i, p := range pts {
			pts[i] = geom.Rotate(p, c, s.Angle)
		}
	}
	return pts
}

// extent is an axis-aligned bounding box in scene coordinates.
type extent struct {
	minX, minY, maxX, maxY float64
	empty                  bool
}

func newExtent() extent {
	return extent{
		minX: math.Inf(1), minY: math.Inf(1),
		maxX: math.Inf(-1), maxY: math.Inf(-1),
		empty: true,
	}
}

func (e *extent) add(pts ...geom.Point) {
	for _, p := range pts {
		e.minX = math.Min(e.minX, p.X)
		e.minY = math.Min(e.minY, p.Y)
		e.maxX = math.Max(e.maxX, p.X)
		e.maxY = math.Max(e.maxY, p.Y)
		e.empty = false
	}
}

// sceneExtent returns the bounding box of the non-deleted elements.
func sceneExtent(els []element.Element) extent {
	e := newExtent()
	for _, el := range els {
		if el.Common().IsDeleted {
			continue
		}
		switch v := el.(type) {
		case *element.Shape:
			e.add(Outline(v)...)
		case *element.Linear:
			e.add(v.AbsolutePoints()...)
		case *element.Text:
			e.add(geom.Pt(v.X, v.Y), geom.Pt(v.X+v.Width, v.Y+v.Height))
		}
	}
	return e
}

// viewport maps scene coordinates onto an output canvas, fitting the scene
// inside the padding and centring it.
type viewport struct {
	scale   float64
	offsetX float64
	offsetY float64
}

func fitViewport(e extent, width, height, padding float64) viewport {
	if e.empty {
		return viewport{scale: 1}
	}
	w := math.Max(e.maxX-e.minX, 1)
	h := math.Max(e.maxY-e.minY, 1)
	availW := math.Max(width-2*padding, 1)
	availH := math.Max(height-2*padding, 1)

	scale := math.Min(availW/w, availH/h)
	return viewport{
		scale:   scale,
		offsetX: (width-w*scale)/2 - e.minX*scale,
		offsetY: (height-h*scale)/2 - e.minY*scale,
	}
}

func (v viewport) apply(p geom.Point) geom.Point {
	return geom.Pt(p.X*v.scale+v.offsetX, p.Y*v.scale+v.offsetY)
}

func (v viewport) applyAll(pts []geom.Point) []geom.Point {
	out := make([]geom.Point, len(pts))
	for i, p := range pts {
		out[i] = v.apply(p)
	}
	return out
}

// arrowHead returns the two wing points of an arrowhead at tip, pointing
// along from→tip.
func arrowHead(from, tip geom.Point, length, width float64) (geom.Point, geom.Point, bool) {
	d := geom.Distance(from, tip)
	if d < geom.Epsilon {
		return geom.Point{}, geom.Point{}, false
	}
	nx, ny := (tip.X-from.X)/d, (tip.Y-from.Y)/d
	left := geom.Pt(tip.X-nx*length+ny*width, tip.Y-ny*length-nx*width)
	right := geom.Pt(tip.X-nx*length-ny*width, tip.Y-ny*length+nx*width)
	return left, right, true
}

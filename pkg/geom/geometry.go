// Geometric primitives for scene elements.
// Provides point arithmetic and the line/outline intersections used by binding.

package geom

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
)

// Epsilon is the tolerance used when comparing coordinates.
const Epsilon = 1e-9

// Point represents a 2D coordinate in scene space.
type Point struct {
	X, Y float64
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (p Point) vec() r2.Vec { return r2.Vec(p) }

func fromVec(v r2.Vec) Point { return Point(v) }

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return fromVec(r2.Add(p.vec(), q.vec()))
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return fromVec(r2.Sub(p.vec(), q.vec()))
}

// Scale returns p scaled by f.
func (p Point) Scale(f float64) Point {
	return fromVec(r2.Scale(f, p.vec()))
}

// Equal reports whether p and q coincide within Epsilon.
func (p Point) Equal(q Point) bool {
	return math.Abs(p.X-q.X) <= Epsilon && math.Abs(p.Y-q.Y) <= Epsilon
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// MarshalJSON encodes a point as a two-element array.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON decodes a two-element array.
func (p *Point) UnmarshalJSON(data []byte) error {
	var xy [2]float64
	if err := json.Unmarshal(data, &xy); err != nil {
		return fmt.Errorf("point: %w", err)
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return r2.Norm(r2.Sub(b.vec(), a.vec()))
}

// CenterPoint returns the midpoint of a and b.
func CenterPoint(a, b Point) Point {
	return fromVec(r2.Scale(0.5, r2.Add(a.vec(), b.vec())))
}

// Rotate rotates p by angle radians around center.
func Rotate(p, center Point, angle float64) Point {
	if angle == 0 {
		return p
	}
	return fromVec(r2.Rotate(p.vec(), angle, center.vec()))
}

// DistanceToSegment returns the distance from p to the segment a-b.
func DistanceToSegment(p, a, b Point) float64 {
	ab := r2.Sub(b.vec(), a.vec())
	l2 := r2.Dot(ab, ab)
	if l2 < Epsilon {
		return Distance(p, a)
	}
	t := r2.Dot(r2.Sub(p.vec(), a.vec()), ab) / l2
	t = math.Max(0, math.Min(1, t))
	proj := r2.Add(a.vec(), r2.Scale(t, ab))
	return r2.Norm(r2.Sub(p.vec(), proj))
}

// DistanceToPolygon returns the distance from p to the outline of a closed polygon.
func DistanceToPolygon(p Point, vertices []Point) float64 {
	best := math.Inf(1)
	for i := range vertices {
		a := vertices[i]
		b := vertices[(i+1)%len(vertices)]
		if d := DistanceToSegment(p, a, b); d < best {
			best = d
		}
	}
	return best
}

// hit is an intersection with its parameter along the query line.
type hit struct {
	t float64
	p Point
}

// orderHits sorts by parameter and merges hits closer than tolerance.
func orderHits(hits []hit) []Point {
	sort.Slice(hits, func(i, j int) bool { return hits[i].t < hits[j].t })

	result := make([]Point, 0, len(hits))
	for _, h := range hits {
		if n := len(result); n > 0 && Distance(result[n-1], h.p) < 1e-7 {
			continue
		}
		result = append(result, h.p)
	}
	return result
}

// LineIntersectPolygon intersects the infinite line through a and b with the
// outline of a closed convex polygon. Points are ordered along a→b; a line
// passing through a corner reports that corner once.
func LineIntersectPolygon(a, b Point, vertices []Point) []Point {
	d := r2.Sub(b.vec(), a.vec())
	if r2.Norm(d) < Epsilon || len(vertices) < 2 {
		return nil
	}

	var hits []hit
	for i := range vertices {
		p := vertices[i].vec()
		e := r2.Sub(vertices[(i+1)%len(vertices)].vec(), p)
		ap := r2.Sub(p, a.vec())
		denom := r2.Cross(d, e)

		if math.Abs(denom) < Epsilon {
			// Parallel: only a collinear edge touches the line, at both its ends
			if math.Abs(r2.Cross(ap, d)) < Epsilon*r2.Norm(d) {
				q := r2.Add(p, e)
				hits = append(hits,
					hit{t: lineParam(a, d, fromVec(p)), p: fromVec(p)},
					hit{t: lineParam(a, d, fromVec(q)), p: fromVec(q)})
			}
			continue
		}

		t := r2.Cross(ap, e) / denom
		u := r2.Cross(ap, d) / denom
		if u < -Epsilon || u > 1+Epsilon {
			continue
		}
		hits = append(hits, hit{t: t, p: fromVec(r2.Add(a.vec(), r2.Scale(t, d)))})
	}

	points := orderHits(hits)
	if len(points) > 2 {
		// Collinear edge: keep the outermost crossings
		points = []Point{points[0], points[len(points)-1]}
	}
	return points
}

func lineParam(a Point, d r2.Vec, p Point) float64 {
	return r2.Dot(r2.Sub(p.vec(), a.vec()), d) / r2.Dot(d, d)
}

// LineIntersectEllipse intersects the infinite line through a and b with an
// axis-aligned ellipse. Returns 0, 1 (tangent) or 2 points ordered along a→b.
func LineIntersectEllipse(a, b, center Point, rx, ry float64) []Point {
	if rx < Epsilon || ry < Epsilon {
		return nil
	}

	// Transform to unit circle space
	x1 := (a.X - center.X) / rx
	y1 := (a.Y - center.Y) / ry
	dx := (b.X - a.X) / rx
	dy := (b.Y - a.Y) / ry

	qa := dx*dx + dy*dy
	if qa < Epsilon {
		return nil
	}
	qb := 2 * (x1*dx + y1*dy)
	qc := x1*x1 + y1*y1 - 1

	discriminant := qb*qb - 4*qa*qc
	if discriminant < 0 {
		return nil
	}

	at := func(t float64) Point {
		return Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
	}

	if discriminant < Epsilon {
		return []Point{at(-qb / (2 * qa))}
	}

	sqrtD := math.Sqrt(discriminant)
	t1 := (-qb - sqrtD) / (2 * qa)
	t2 := (-qb + sqrtD) / (2 * qa)
	return []Point{at(t1), at(t2)}
}

// DistanceToEllipse returns the distance from p to the outline of an
// axis-aligned ellipse. The closest point is found by a short fixed-point
// iteration on the ellipse's evolute, accurate to well under a scene unit.
func DistanceToEllipse(p, center Point, rx, ry float64) float64 {
	if rx < Epsilon || ry < Epsilon {
		// Degenerate ellipse collapses to a segment
		return DistanceToSegment(p,
			Point{center.X - rx, center.Y - ry},
			Point{center.X + rx, center.Y + ry})
	}

	px := math.Abs(p.X - center.X)
	py := math.Abs(p.Y - center.Y)

	tx, ty := math.Sqrt2/2, math.Sqrt2/2
	for i := 0; i < 4; i++ {
		x := rx * tx
		y := ry * ty

		ex := (rx*rx - ry*ry) * tx * tx * tx / rx
		ey := (ry*ry - rx*rx) * ty * ty * ty / ry

		r := math.Hypot(x-ex, y-ey)
		q := math.Hypot(px-ex, py-ey)
		if q < Epsilon {
			break
		}

		tx = clamp01(((px-ex)*r/q + ex) / rx)
		ty = clamp01(((py-ey)*r/q + ey) / ry)
		n := math.Hypot(tx, ty)
		tx /= n
		ty /= n
	}

	return math.Hypot(px-rx*tx, py-ry*ty)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

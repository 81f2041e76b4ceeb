package element

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/sketch-toolkit/pkg/geom"
)

func TestNewShapeNormalisesNegativeSize(t *testing.T) {
	s := NewShape(TypeRectangle, 60, 60, -20, -10)
	assert.Equal(t, 40.0, s.X)
	assert.Equal(t, 50.0, s.Y)
	assert.Equal(t, 20.0, s.Width)
	assert.Equal(t, 10.0, s.Height)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 1, s.Version)
}

func TestShapeNormalize(t *testing.T) {
	s := &Shape{Base: Base{Type: TypeEllipse, X: 100, Y: 0, Width: -100, Height: 100}}
	s.Normalize()
	assert.Equal(t, 0.0, s.X)
	assert.Equal(t, 100.0, s.Width)
	assert.Equal(t, 0.0, s.Y)
	assert.Equal(t, 100.0, s.Height)

	s.Normalize()
	assert.Equal(t, 0.0, s.X, "already normalised")
	assert.Equal(t, 100.0, s.Width)
}

func TestNewLinearRelativePoints(t *testing.T) {
	l := NewLinear(TypeArrow, geom.Pt(10, 20), geom.Pt(30, 25), geom.Pt(15, 60))

	assert.Equal(t, 10.0, l.X)
	assert.Equal(t, 20.0, l.Y)
	assert.Equal(t, []geom.Point{{X: 0, Y: 0}, {X: 20, Y: 5}, {X: 5, Y: 40}}, l.Points)
	assert.Equal(t, 20.0, l.Width)
	assert.Equal(t, 40.0, l.Height)
	assert.Equal(t, []geom.Point{{X: 10, Y: 20}, {X: 30, Y: 25}, {X: 15, Y: 60}}, l.AbsolutePoints())
}

func TestEdgeSegment(t *testing.T) {
	l := NewLinear(TypeLine, geom.Pt(0, 0), geom.Pt(10, 0), geom.Pt(10, 10))

	adj, edge := l.EdgeSegment(Start)
	assert.Equal(t, geom.Pt(10, 0), adj)
	assert.Equal(t, geom.Pt(0, 0), edge)

	adj, edge = l.EdgeSegment(End)
	assert.Equal(t, geom.Pt(10, 0), adj)
	assert.Equal(t, geom.Pt(10, 10), edge)
}

func TestEndpointString(t *testing.T) {
	assert.Equal(t, "start", Start.String())
	assert.Equal(t, "end", End.String())
}

func TestAddBoundID(t *testing.T) {
	ids := []string{"a", "b"}

	got := AddBoundID(ids, "c")
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, []string{"a", "b"}, ids, "input must not change")

	assert.Equal(t, []string{"a", "b"}, AddBoundID(ids, "a"))
	assert.Equal(t, []string{"x"}, AddBoundID(nil, "x"))
	assert.Equal(t, []string{"a"}, AddBoundID([]string{"a", "a"}, "a"))

	assert.True(t, HasBoundID(got, "c"))
	assert.False(t, HasBoundID(got, "z"))
}

func TestCapabilityCheck(t *testing.T) {
	assert.True(t, IsBindable(NewShape(TypeRectangle, 0, 0, 10, 10)))
	assert.True(t, IsBindable(NewShape(TypeEllipse, 0, 0, 10, 10)))
	assert.True(t, IsBindable(NewShape(TypeDiamond, 0, 0, 10, 10)))
	assert.False(t, IsBindable(NewLinear(TypeArrow, geom.Pt(0, 0), geom.Pt(1, 1))))
	assert.False(t, IsBindable(NewText(0, 0, "hi", 16)))
	assert.False(t, IsBindable(nil))
}

func TestBorderTest(t *testing.T) {
	tests := []struct {
		name      string
		shape     *Shape
		p         geom.Point
		threshold float64
		want      bool
	}{
		{"rect near edge outside", NewShape(TypeRectangle, 40, 40, 20, 20), geom.Pt(35, 50), 10, true},
		{"rect near edge inside", NewShape(TypeRectangle, 40, 40, 100, 100), geom.Pt(45, 90), 10, true},
		{"rect deep inside", NewShape(TypeRectangle, 0, 0, 100, 100), geom.Pt(50, 50), 10, false},
		{"rect far outside", NewShape(TypeRectangle, 40, 40, 20, 20), geom.Pt(0, 0), 10, false},
		{"ellipse on outline", NewShape(TypeEllipse, 0, 0, 100, 50), geom.Pt(100, 25), 1, true},
		{"ellipse centre", NewShape(TypeEllipse, 0, 0, 100, 50), geom.Pt(50, 25), 10, false},
		{"diamond tip", NewShape(TypeDiamond, 0, 0, 100, 100), geom.Pt(50, -5), 10, true},
		{"diamond bbox corner", NewShape(TypeDiamond, 0, 0, 100, 100), geom.Pt(0, 0), 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.shape.BindingBorderTest(tt.p, tt.threshold))
		})
	}
}

func TestRotatedShapeIntersection(t *testing.T) {
	// A square rotated 45° is a diamond with half-diagonal 10*√2
	s := NewShape(TypeRectangle, -10, -10, 20, 20)
	s.Angle = math.Pi / 4

	got := s.IntersectLine(geom.Pt(-50, 0), geom.Pt(-40, 0))
	require.Len(t, got, 2)
	assert.InDelta(t, -10*math.Sqrt2, got[0].X, 1e-9)
	assert.InDelta(t, 0, got[0].Y, 1e-9)
	assert.InDelta(t, 10*math.Sqrt2, got[1].X, 1e-9)

	assert.True(t, s.BindingBorderTest(geom.Pt(-10*math.Sqrt2-2, 0), 3))
	assert.False(t, s.BindingBorderTest(geom.Pt(-11, -11), 3), "unrotated corner is empty space")
}

func TestTolerance(t *testing.T) {
	tol := DefaultTolerance()

	small := NewShape(TypeRectangle, 0, 0, 20, 20)
	assert.Equal(t, 15.0, tol.Threshold(small, 1), "floor applies to small shapes")
	assert.Equal(t, 7.5, tol.Threshold(small, 2), "floor shrinks with zoom")

	medium := NewShape(TypeRectangle, 0, 0, 200, 400)
	assert.Equal(t, 50.0, tol.Threshold(medium, 1))

	huge := NewShape(TypeEllipse, 0, 0, 1000, 1000)
	assert.Equal(t, 80.0, tol.Threshold(huge, 1), "capped at MaxGap")

	diamond := NewShape(TypeDiamond, 0, 0, 200*math.Sqrt2, 400)
	assert.InDelta(t, 50.0, tol.Threshold(diamond, 1), 1e-9)

	assert.Equal(t, 15.0, tol.Threshold(small, 0), "non-positive zoom treated as 1")
}

func TestApply(t *testing.T) {
	l := NewLinear(TypeArrow, geom.Pt(0, 0), geom.Pt(50, 50))
	assert.False(t, Apply(l, Patch{}))
	assert.Equal(t, 1, l.Version)

	b := Binding{ElementID: "s1", FocusPoint: geom.Pt(1, 2), Gap: 3}
	require.True(t, Apply(l, BindingPatch(End, b)))
	assert.Equal(t, 2, l.Version)
	assert.Nil(t, l.StartBinding)
	require.NotNil(t, l.EndBinding)
	assert.Equal(t, b, *l.EndBinding)

	// The stored record is a copy
	b.Gap = 99
	assert.Equal(t, 3.0, l.EndBinding.Gap)

	Apply(l, BindingPatch(Start, Binding{ElementID: "s2"}))
	assert.Equal(t, "s2", l.StartBinding.ElementID)
	assert.Equal(t, "s1", l.EndBinding.ElementID)

	Apply(l, Patch{X: Ptr(5.0), Points: []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 30}}})
	assert.Equal(t, 5.0, l.X)
	assert.Equal(t, 30.0, l.Height)
}

func TestApplyIgnoresForeignFields(t *testing.T) {
	s := NewShape(TypeRectangle, 0, 0, 10, 10)
	ids := []string{"l1"}
	Apply(s, Patch{BoundElementIDs: ids, EndBinding: &Binding{ElementID: "x"}, Text: Ptr("t")})
	assert.Equal(t, []string{"l1"}, s.BoundElementIDs)

	ids[0] = "changed"
	assert.Equal(t, []string{"l1"}, s.BoundElementIDs, "slice is copied")
}

func TestClone(t *testing.T) {
	l := NewLinear(TypeArrow, geom.Pt(0, 0), geom.Pt(5, 5))
	l.EndBinding = &Binding{ElementID: "s"}
	l.BoundElementIDs = []string{"x"}

	c := Clone(l).(*Linear)
	c.Points[0] = geom.Pt(9, 9)
	c.EndBinding.ElementID = "other"
	c.BoundElementIDs[0] = "y"

	assert.Equal(t, geom.Pt(0, 0), l.Points[0])
	assert.Equal(t, "s", l.EndBinding.ElementID)
	assert.Equal(t, "x", l.BoundElementIDs[0])

	s := NewShape(TypeEllipse, 0, 0, 1, 1)
	assert.Equal(t, s, Clone(s))
	assert.NotSame(t, s, Clone(s))
}

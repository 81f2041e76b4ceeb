package binding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ha1tch/sketch-toolkit/pkg/element"
	"github.com/ha1tch/sketch-toolkit/pkg/geom"
	"github.com/ha1tch/sketch-toolkit/pkg/scene"
	"github.com/ha1tch/sketch-toolkit/pkg/telemetry"
)

const tol = 1e-9

func square(x, y, size float64) *element.Shape {
	return element.NewShape(element.TypeRectangle, x, y, size, size)
}

func TestFindBoundTarget(t *testing.T) {
	big := element.NewShape(element.TypeRectangle, 0, 0, 200, 200)
	small := square(40, 40, 20)
	label := element.NewText(45, 45, "label", 16)
	s := scene.New(big, small, label)
	state := scene.DefaultAppState()

	tests := []struct {
		name string
		p    geom.Point
		want element.Element
	}{
		{"topmost shape wins over text", geom.Pt(50, 50), small},
		{"near outer border", geom.Pt(205, 100), big},
		{"deep inside big shape", geom.Pt(100, 100), nil},
		{"far away", geom.Pt(500, 500), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindBoundTarget(s, state, tt.p)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want.Common().ID, got.Common().ID)
		})
	}

	t.Run("overlap is stable across calls", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			got := FindBoundTarget(s, state, geom.Pt(50, 50))
			require.NotNil(t, got)
			assert.Equal(t, small.ID, got.Common().ID, "call %d", i)
		}
	})
}

func TestFindBoundTargetZoom(t *testing.T) {
	s := scene.New(square(0, 0, 20))
	state := scene.DefaultAppState()
	p := geom.Pt(-10, 10)

	assert.NotNil(t, FindBoundTarget(s, state, p))

	state.Zoom = 2
	assert.Nil(t, FindBoundTarget(s, state, p), "band narrows when zoomed in")
}

func TestFindBoundTargetSkipsDeleted(t *testing.T) {
	under := square(40, 40, 20)
	over := square(40, 40, 20)
	over.IsDeleted = true
	s := scene.New(under, over)

	got := FindBoundTarget(s, scene.DefaultAppState(), geom.Pt(50, 50))
	require.NotNil(t, got)
	assert.Equal(t, under.ID, got.Common().ID)
}

func TestComputeFocusDiagonalSquare(t *testing.T) {
	shape := square(40, 40, 20)
	l := element.NewLinear(element.TypeArrow, geom.Pt(0, 0), geom.Pt(50, 50))

	f := ComputeFocus(l, shape, element.End)
	assert.InDelta(t, 50, f.Point.X, tol)
	assert.InDelta(t, 50, f.Point.Y, tol)
	assert.InDelta(t, 10*math.Sqrt2, f.Gap, tol)
	assert.Equal(t, 2, f.Crossings)
}

func TestComputeFocusEllipse(t *testing.T) {
	circle := element.NewShape(element.TypeEllipse, 40, 40, 20, 20)

	end := element.NewLinear(element.TypeArrow, geom.Pt(0, 50), geom.Pt(45, 50))
	f := ComputeFocus(end, circle, element.End)
	assert.InDelta(t, 50, f.Point.X, tol)
	assert.InDelta(t, 50, f.Point.Y, tol)
	assert.InDelta(t, 5, f.Gap, tol)

	// The start endpoint uses points[0] and points[1]
	start := element.NewLinear(element.TypeArrow, geom.Pt(45, 50), geom.Pt(0, 50))
	f = ComputeFocus(start, circle, element.Start)
	assert.InDelta(t, 50, f.Point.X, tol)
	assert.InDelta(t, 5, f.Gap, tol)
}

func TestComputeFocusUsesTerminalSegmentOnly(t *testing.T) {
	shape := square(40, 40, 20)
	// Only the last segment (100,50)->(70,50) is extended
	l := element.NewLinear(element.TypeArrow, geom.Pt(0, 0), geom.Pt(100, 50), geom.Pt(70, 50))

	f := ComputeFocus(l, shape, element.End)
	assert.InDelta(t, 50, f.Point.X, tol)
	assert.InDelta(t, 50, f.Point.Y, tol)
	assert.InDelta(t, 10, f.Gap, tol)
}

func TestComputeFocusFallback(t *testing.T) {
	shape := square(40, 40, 20)

	t.Run("line misses shape", func(t *testing.T) {
		l := element.NewLinear(element.TypeLine, geom.Pt(0, 0), geom.Pt(10, 0))
		f := ComputeFocus(l, shape, element.End)
		assert.Equal(t, Focus{Point: geom.Pt(10, 0), Gap: 0, Crossings: 0}, f)
	})

	t.Run("tangent to ellipse", func(t *testing.T) {
		circle := element.NewShape(element.TypeEllipse, 40, 40, 20, 20)
		l := element.NewLinear(element.TypeLine, geom.Pt(0, 40), geom.Pt(30, 40))
		f := ComputeFocus(l, circle, element.End)
		assert.Equal(t, geom.Pt(30, 40), f.Point)
		assert.Equal(t, 0.0, f.Gap)
		assert.Equal(t, 1, f.Crossings)
	})
}

func TestComputeFocusIsPure(t *testing.T) {
	shape := square(40, 40, 20)
	l := element.NewLinear(element.TypeArrow, geom.Pt(0, 0), geom.Pt(50, 50))
	before := element.Clone(l)
	shapeBefore := element.Clone(shape)

	ComputeFocus(l, shape, element.End)
	assert.Equal(t, before, l)
	assert.Equal(t, shapeBefore, shape)
}

func TestAttachIfHoveringScenario(t *testing.T) {
	shape := square(40, 40, 20)
	l := element.NewLinear(element.TypeArrow, geom.Pt(0, 0), geom.Pt(50, 50))
	s := scene.New(shape, l)

	New(s).AttachIfHovering(l, scene.DefaultAppState(), geom.Pt(50, 50))

	assert.Nil(t, l.StartBinding)
	require.NotNil(t, l.EndBinding)
	assert.Equal(t, shape.ID, l.EndBinding.ElementID)
	assert.InDelta(t, 50, l.EndBinding.FocusPoint.X, tol)
	assert.InDelta(t, 50, l.EndBinding.FocusPoint.Y, tol)
	assert.InDelta(t, 14.142135623730951, l.EndBinding.Gap, 1e-12)
	assert.Equal(t, []string{l.ID}, shape.BoundElementIDs)
	assert.Empty(t, s.Check())
}

func TestAttachIfHoveringStartIgnoresPointer(t *testing.T) {
	origin := square(0, 0, 20)
	l := element.NewLinear(element.TypeArrow, geom.Pt(10, 10), geom.Pt(300, 300))
	s := scene.New(origin, l)

	state := scene.DefaultAppState()
	state.BoundElement = origin

	New(s).AttachIfHovering(l, state, geom.Pt(300, 300))

	require.NotNil(t, l.StartBinding)
	assert.Equal(t, origin.ID, l.StartBinding.ElementID)
	assert.Nil(t, l.EndBinding, "nothing under the pointer")
	assert.Equal(t, []string{l.ID}, origin.BoundElementIDs)
}

func TestAttachIfHoveringMissLeavesEndUnbound(t *testing.T) {
	shape := square(40, 40, 20)
	l := element.NewLinear(element.TypeArrow, geom.Pt(0, 0), geom.Pt(300, 0))
	s := scene.New(shape, l)

	var changes int
	s.Subscribe(func(scene.Change) { changes++ })

	New(s).AttachIfHovering(l, scene.DefaultAppState(), geom.Pt(300, 0))

	assert.Nil(t, l.StartBinding)
	assert.Nil(t, l.EndBinding)
	assert.Empty(t, shape.BoundElementIDs)
	assert.Zero(t, changes)
}

func TestAttachIfHoveringBothEndsSameShape(t *testing.T) {
	shape := square(40, 40, 20)
	l := element.NewLinear(element.TypeArrow, geom.Pt(40, 50), geom.Pt(60, 50))
	s := scene.New(shape, l)

	state := scene.DefaultAppState()
	state.BoundElement = shape

	New(s).AttachIfHovering(l, state, geom.Pt(60, 50))

	require.NotNil(t, l.StartBinding)
	require.NotNil(t, l.EndBinding)
	assert.Equal(t, shape.ID, l.StartBinding.ElementID)
	assert.Equal(t, shape.ID, l.EndBinding.ElementID)
	assert.Equal(t, []string{l.ID}, shape.BoundElementIDs)
}

func TestAttachIfHoveringDisabled(t *testing.T) {
	shape := square(40, 40, 20)
	l := element.NewLinear(element.TypeArrow, geom.Pt(0, 0), geom.Pt(50, 50))
	s := scene.New(shape, l)

	state := scene.DefaultAppState()
	state.BoundElement = shape
	state.BindingDisabled = true

	New(s).AttachIfHovering(l, state, geom.Pt(50, 50))
	assert.Nil(t, l.StartBinding)
	assert.Nil(t, l.EndBinding)
}

func TestAttachIfHoveringZeroStateBinds(t *testing.T) {
	origin := square(0, 0, 20)
	l := element.NewLinear(element.TypeArrow, geom.Pt(10, 10), geom.Pt(300, 300))
	s := scene.New(origin, l)

	state := scene.AppState{
		Zoom:         1,
		Tolerance:    element.DefaultTolerance(),
		BoundElement: origin,
	}

	New(s).AttachIfHovering(l, state, geom.Pt(300, 300))

	require.NotNil(t, l.StartBinding)
	assert.Equal(t, origin.ID, l.StartBinding.ElementID)
	assert.Equal(t, []string{l.ID}, origin.BoundElementIDs)
}

func TestAttachIfHoveringDeletedStartTarget(t *testing.T) {
	gone := square(0, 0, 20)
	gone.IsDeleted = true
	l := element.NewLinear(element.TypeArrow, geom.Pt(10, 10), geom.Pt(300, 300))
	s := scene.New(gone, l)

	state := scene.DefaultAppState()
	state.BoundElement = gone

	New(s).AttachIfHovering(l, state, geom.Pt(300, 300))
	assert.Nil(t, l.StartBinding)
	assert.Empty(t, gone.BoundElementIDs)
}

func TestBindEndpointIdempotent(t *testing.T) {
	shape := square(40, 40, 20)
	shape.BoundElementIDs = []string{"other"}
	l := element.NewLinear(element.TypeArrow, geom.Pt(0, 0), geom.Pt(50, 50))
	c := New(scene.New(shape, l))

	c.BindEndpoint(l, shape, element.End)
	first := *l.EndBinding
	c.BindEndpoint(l, shape, element.End)

	assert.Equal(t, first, *l.EndBinding)
	assert.Equal(t, []string{"other", l.ID}, shape.BoundElementIDs)
}

func TestBindEndpointRebindKeepsOldBackReference(t *testing.T) {
	a := square(40, 40, 20)
	b := square(140, 40, 20)
	l := element.NewLinear(element.TypeArrow, geom.Pt(0, 50), geom.Pt(50, 50))
	s := scene.New(a, b, l)
	c := New(s)

	c.BindEndpoint(l, a, element.End)
	c.BindEndpoint(l, b, element.End)

	assert.Equal(t, b.ID, l.EndBinding.ElementID)
	assert.Equal(t, []string{l.ID}, a.BoundElementIDs, "back-references are append-only")
	assert.Equal(t, []string{l.ID}, b.BoundElementIDs)

	issues := s.Check()
	require.Len(t, issues, 1)
	assert.Equal(t, scene.IssueStaleBackReference, issues[0].Kind)
}

func TestBindEndpointLeavesOtherEndpoint(t *testing.T) {
	a := square(0, 0, 20)
	b := square(100, 0, 20)
	l := element.NewLinear(element.TypeArrow, geom.Pt(10, 10), geom.Pt(110, 10))
	c := New(scene.New(a, b, l))

	c.BindEndpoint(l, a, element.Start)
	start := *l.StartBinding
	c.BindEndpoint(l, b, element.End)

	assert.Equal(t, start, *l.StartBinding)
	assert.Equal(t, b.ID, l.EndBinding.ElementID)
}

func TestBindEndpointMutatesThroughStore(t *testing.T) {
	shape := square(40, 40, 20)
	l := element.NewLinear(element.TypeArrow, geom.Pt(0, 0), geom.Pt(50, 50))
	s := scene.New(shape, l)

	var order []string
	s.Subscribe(func(ch scene.Change) {
		order = append(order, ch.Element.Common().ID)
	})

	New(s).BindEndpoint(l, shape, element.End)

	assert.Equal(t, []string{l.ID, shape.ID}, order, "line first, then shape")
	assert.Equal(t, 2, l.Version)
	assert.Equal(t, 2, shape.Version)
}

func TestCoordinatorMetricsAndLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	metrics := telemetry.NewCollector("sketch")

	shape := square(40, 40, 20)
	hit := element.NewLinear(element.TypeArrow, geom.Pt(0, 0), geom.Pt(50, 50))
	miss := element.NewLinear(element.TypeArrow, geom.Pt(0, 0), geom.Pt(300, 0))
	s := scene.New(shape, hit, miss)
	c := New(s, WithLogger(zap.New(core)), WithMetrics(metrics))

	c.AttachIfHovering(hit, scene.DefaultAppState(), geom.Pt(50, 50))
	c.AttachIfHovering(miss, scene.DefaultAppState(), geom.Pt(300, 0))

	// Horizontal line through y=0 never crosses the square
	flat := element.NewLinear(element.TypeLine, geom.Pt(0, 0), geom.Pt(10, 0))
	c.BindEndpoint(flat, shape, element.Start)

	snap, err := metrics.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 1.0, snap[`sketch_bindings_total{endpoint="end",outcome="focus"}`])
	assert.Equal(t, 1.0, snap[`sketch_bindings_total{endpoint="start",outcome="fallback"}`])
	assert.Equal(t, 1.0, snap[`sketch_hover_lookups_total{result="hit"}`])
	assert.Equal(t, 1.0, snap[`sketch_hover_lookups_total{result="miss"}`])

	bound := logs.FilterMessage("endpoint bound").All()
	require.Len(t, bound, 2)
	assert.Equal(t, shape.ID, bound[0].ContextMap()["target"])
	assert.Equal(t, "fallback", bound[1].ContextMap()["outcome"])
	assert.Equal(t, 1, logs.FilterMessage("no bindable target under pointer").Len())
}

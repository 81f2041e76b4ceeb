package binding

import (
	"go.uber.org/zap"

	"github.com/ha1tch/sketch-toolkit/pkg/element"
	"github.com/ha1tch/sketch-toolkit/pkg/geom"
	"github.com/ha1tch/sketch-toolkit/pkg/scene"
	"github.com/ha1tch/sketch-toolkit/pkg/telemetry"
)

// Store is the element store a Coordinator works against.
// *scene.Scene satisfies it.
type Store interface {
	Finder
	Mutate(el element.Element, p element.Patch)
}

// Coordinator binds linear element endpoints to shapes. Every bind writes the
// forward record on the linear element and the back-reference on the shape
// before returning.
type Coordinator struct {
	store   Store
	logger  *zap.Logger
	metrics *telemetry.Collector
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger for bind events.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records binds and hover lookups on m.
func WithMetrics(m *telemetry.Collector) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// New creates a Coordinator over store.
func New(store Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  store,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BindEndpoint binds endpoint ep of l to shape. The binding record for ep is
// replaced; the other endpoint is untouched. Rebinding the same pair
// recomputes the focus and leaves the shape's back-reference set as it was.
func (c *Coordinator) BindEndpoint(l *element.Linear, shape element.Bindable, ep element.Endpoint) {
	focus := ComputeFocus(l, shape, ep)
	target := shape.Common()

	c.store.Mutate(l, element.BindingPatch(ep, element.Binding{
		ElementID:  target.ID,
		FocusPoint: focus.Point,
		Gap:        focus.Gap,
	}))

	c.store.Mutate(shape, element.Patch{
		BoundElementIDs: element.AddBoundID(target.BoundElementIDs, l.ID),
	})

	outcome := telemetry.OutcomeFocus
	if focus.Crossings < 2 {
		outcome = telemetry.OutcomeFallback
	}
	if c.metrics != nil {
		c.metrics.RecordBinding(ep.String(), outcome)
	}
	c.logger.Debug("endpoint bound",
		zap.String("linear", l.ID),
		zap.String("endpoint", ep.String()),
		zap.String("target", target.ID),
		zap.String("targetType", string(target.Type)),
		zap.Stringer("focus", focus.Point),
		zap.Float64("gap", focus.Gap),
		zap.String("outcome", outcome),
	)
}

// AttachIfHovering binds l after the pointer is released at p. The start is
// bound to state.BoundElement when set, without re-testing the pointer. The
// end is bound to whatever bindable shape p hovers. The two steps are
// independent: either, both or neither may bind, and both may target the
// same shape. Nothing happens while binding is disabled.
func (c *Coordinator) AttachIfHovering(l *element.Linear, state scene.AppState, p geom.Point) {
	if state.BindingDisabled {
		c.logger.Debug("binding disabled", zap.String("linear", l.ID))
		return
	}

	if start := state.BoundElement; start != nil && !start.Common().IsDeleted {
		c.BindEndpoint(l, start, element.Start)
	}

	hovered := FindBoundTarget(c.store, state, p)
	if c.metrics != nil {
		c.metrics.RecordHover(hovered != nil)
	}
	if hovered == nil {
		c.logger.Debug("no bindable target under pointer",
			zap.String("linear", l.ID),
			zap.Stringer("pointer", p),
		)
		return
	}
	c.BindEndpoint(l, hovered, element.End)
}

package scene

import "github.com/ha1tch/sketch-toolkit/pkg/element"

// AppState is the ambient editor state consulted while binding.
type AppState struct {
	Zoom      float64
	Tolerance element.Tolerance

	// BoundElement is the shape under the pointer when the current linear
	// element started; nil when the drag began on empty canvas.
	BoundElement element.Bindable

	// BindingDisabled is set while the user holds the binding modifier.
	// The zero value binds.
	BindingDisabled bool
}

// DefaultAppState returns zoom 1 and the default tolerance.
func DefaultAppState() AppState {
	return AppState{
		Zoom:      1,
		Tolerance: element.DefaultTolerance(),
	}
}

// Threshold returns the border-test distance for b under this state.
func (a AppState) Threshold(b element.Bindable) float64 {
	return a.Tolerance.Threshold(b, a.Zoom)
}

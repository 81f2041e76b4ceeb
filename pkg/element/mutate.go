package element

import (
	"math/rand"

	"github.com/ha1tch/sketch-toolkit/pkg/geom"
)

// Patch is a partial update. Nil fields are left untouched; fields that do
// not apply to the element's variant are ignored.
type Patch struct {
	X, Y            *float64
	Width, Height   *float64
	Angle           *float64
	IsDeleted       *bool
	BoundElementIDs []string

	// Linear only
	Points       []geom.Point
	StartBinding *Binding
	EndBinding   *Binding

	// Text only
	Text *string
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T {
	return &v
}

// BindingPatch returns a patch that replaces the binding record for ep.
func BindingPatch(ep Endpoint, b Binding) Patch {
	if ep == Start {
		return Patch{StartBinding: &b}
	}
	return Patch{EndBinding: &b}
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.X == nil && p.Y == nil && p.Width == nil && p.Height == nil &&
		p.Angle == nil && p.IsDeleted == nil && p.BoundElementIDs == nil &&
		p.Points == nil && p.StartBinding == nil && p.EndBinding == nil &&
		p.Text == nil
}

// Apply writes the patch into el and bumps its version.
// Returns false if the patch was empty and nothing changed.
func Apply(el Element, p Patch) bool {
	if p.IsEmpty() {
		return false
	}

	b := el.Common()
	if p.X != nil {
		b.X = *p.X
	}
	if p.Y != nil {
		b.Y = *p.Y
	}
	if p.Width != nil {
		b.Width = *p.Width
	}
	if p.Height != nil {
		b.Height = *p.Height
	}
	if p.Angle != nil {
		b.Angle = *p.Angle
	}
	if p.IsDeleted != nil {
		b.IsDeleted = *p.IsDeleted
	}
	if p.BoundElementIDs != nil {
		b.BoundElementIDs = append([]string(nil), p.BoundElementIDs...)
	}

	switch e := el.(type) {
	case *Linear:
		if p.Points != nil {
			e.Points = append([]geom.Point(nil), p.Points...)
			e.updateBounds()
		}
		// Binding records are replaced wholesale, never merged
		if p.StartBinding != nil {
			sb := *p.StartBinding
			e.StartBinding = &sb
		}
		if p.EndBinding != nil {
			eb := *p.EndBinding
			e.EndBinding = &eb
		}
	case *Text:
		if p.Text != nil {
			e.Text = *p.Text
		}
	}

	b.Version++
	b.VersionNonce = newNonce()
	return true
}

func newNonce() uint32 {
	return rand.Uint32()
}

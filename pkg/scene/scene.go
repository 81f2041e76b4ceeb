// Package scene provides the element store: draw order, lookup by id,
// position queries and change notification for mutations.
package scene

import (
	"github.com/ha1tch/sketch-toolkit/pkg/element"
)

// Change describes one applied mutation.
type Change struct {
	Element element.Element
	Patch   element.Patch
}

// Listener observes mutations applied through Mutate.
type Listener func(Change)

// Predicate selects elements in ElementAtPosition.
type Predicate func(el element.Element, x, y float64) bool

// Scene holds elements in draw order: index 0 is drawn first, the last
// element is topmost. A Scene is not safe for concurrent use; it belongs to
// the editor's event loop.
type Scene struct {
	elements  []element.Element
	index     map[string]element.Element
	listeners map[int]Listener
	nextID    int
}

// New creates a scene holding els in the given draw order.
func New(els ...element.Element) *Scene {
	s := &Scene{
		index:     make(map[string]element.Element),
		listeners: make(map[int]Listener),
	}
	s.Add(els...)
	return s
}

// Add appends elements on top of the draw order. An element whose id is
// already present replaces the existing one in place.
func (s *Scene) Add(els ...element.Element) {
	for _, el := range els {
		id := el.Common().ID
		if _, exists := s.index[id]; exists {
			for i, cur := range s.elements {
				if cur.Common().ID == id {
					s.elements[i] = el
					break
				}
			}
		} else {
			s.elements = append(s.elements, el)
		}
		s.index[id] = el
	}
}

// Get returns the element with the given id, or nil.
func (s *Scene) Get(id string) element.Element {
	return s.index[id]
}

// Len returns the number of elements including deleted ones.
func (s *Scene) Len() int {
	return len(s.elements)
}

// Elements returns all elements in draw order.
func (s *Scene) Elements() []element.Element {
	out := make([]element.Element, len(s.elements))
	copy(out, s.elements)
	return out
}

// NonDeleted returns elements not marked deleted, in draw order.
func (s *Scene) NonDeleted() []element.Element {
	out := make([]element.Element, 0, len(s.elements))
	for _, el := range s.elements {
		if !el.Common().IsDeleted {
			out = append(out, el)
		}
	}
	return out
}

// BringToFront moves the element to the top of the draw order.
func (s *Scene) BringToFront(id string) bool {
	for i, el := range s.elements {
		if el.Common().ID == id {
			s.elements = append(s.elements[:i], s.elements[i+1:]...)
			s.elements = append(s.elements, el)
			return true
		}
	}
	return false
}

// ElementAtPosition returns the topmost non-deleted element for which match
// returns true at (x, y), or nil.
func (s *Scene) ElementAtPosition(x, y float64, match Predicate) element.Element {
	for i := len(s.elements) - 1; i >= 0; i-- {
		el := s.elements[i]
		if el.Common().IsDeleted {
			continue
		}
		if match(el, x, y) {
			return el
		}
	}
	return nil
}

// Mutate applies p to el and notifies listeners. Empty patches are dropped.
func (s *Scene) Mutate(el element.Element, p element.Patch) {
	if !element.Apply(el, p) {
		return
	}
	change := Change{Element: el, Patch: p}
	for i := 0; i < s.nextID; i++ {
		if fn, ok := s.listeners[i]; ok {
			fn(change)
		}
	}
}

// Subscribe registers fn for every applied mutation, in subscription order.
// The returned function removes the listener.
func (s *Scene) Subscribe(fn Listener) func() {
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		delete(s.listeners, id)
	}
}

// Snapshot returns a deep copy of the elements in draw order.
func (s *Scene) Snapshot() []element.Element {
	out := make([]element.Element, len(s.elements))
	for i, el := range s.elements {
		out[i] = element.Clone(el)
	}
	return out
}

// Restore replaces the scene contents with a copy of els. Listeners are kept.
func (s *Scene) Restore(els []element.Element) {
	s.elements = nil
	s.index = make(map[string]element.Element, len(els))
	for _, el := range els {
		s.Add(element.Clone(el))
	}
}

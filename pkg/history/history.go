// Package history keeps bounded undo and redo stacks of scene snapshots.
package history

import "github.com/ha1tch/sketch-toolkit/pkg/element"

// DefaultLimit is the number of undo levels kept when none is configured.
const DefaultLimit = 50

// Snapshot is a deep copy of a scene's elements in draw order.
type Snapshot []element.Element

// History holds undo and redo stacks. The oldest undo level is discarded
// once the limit is reached.
type History struct {
	limit int
	undo  []Snapshot
	redo  []Snapshot
}

// New creates a history keeping up to limit undo levels.
func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{limit: limit}
}

// SetLimit changes the number of levels kept, trimming the oldest.
func (h *History) SetLimit(limit int) {
	if limit <= 0 {
		return
	}
	h.limit = limit
	if over := len(h.undo) - limit; over > 0 {
		h.undo = h.undo[over:]
	}
}

// Save records the state before an edit. Redo history is cleared.
func (h *History) Save(s Snapshot) {
	h.push(s)
	h.redo = nil
}

// Drop discards the most recent undo level, for edits that were abandoned.
func (h *History) Drop() {
	if len(h.undo) > 0 {
		h.undo = h.undo[:len(h.undo)-1]
	}
}

// Undo returns the state to restore and records current for redo.
// ok is false when there is nothing to undo.
func (h *History) Undo(current Snapshot) (Snapshot, bool) {
	if len(h.undo) == 0 {
		return nil, false
	}
	h.redo = append(h.redo, current)

	s := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	return s, true
}

// Redo returns the state to restore and records current for undo without
// clearing the remaining redo levels.
func (h *History) Redo(current Snapshot) (Snapshot, bool) {
	if len(h.redo) == 0 {
		return nil, false
	}
	h.push(current)

	s := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	return s, true
}

// CanUndo reports whether Undo would succeed.
func (h *History) CanUndo() bool { return len(h.undo) > 0 }

// CanRedo reports whether Redo would succeed.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Levels returns the number of undo and redo levels held.
func (h *History) Levels() (undo, redo int) {
	return len(h.undo), len(h.redo)
}

func (h *History) push(s Snapshot) {
	h.undo = append(h.undo, s)
	if len(h.undo) > h.limit {
		h.undo = h.undo[1:]
	}
}

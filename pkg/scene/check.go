package scene

import (
	"fmt"

	"github.com/ha1tch/sketch-toolkit/pkg/element"
)

// IssueKind classifies a binding consistency problem.
type IssueKind string

const (
	// IssueMissingTarget: a binding names an element that is not in the scene.
	IssueMissingTarget IssueKind = "missing-target"
	// IssueDeletedTarget: a binding names a deleted element.
	IssueDeletedTarget IssueKind = "deleted-target"
	// IssueNotBindable: a binding names an element without the capability.
	IssueNotBindable IssueKind = "not-bindable"
	// IssueMissingBackReference: the target does not list the linear element.
	IssueMissingBackReference IssueKind = "missing-back-reference"
	// IssueStaleBackReference: a shape lists an element that is no longer bound to it.
	IssueStaleBackReference IssueKind = "stale-back-reference"
)

// Issue is one consistency finding.
type Issue struct {
	Kind      IssueKind
	ElementID string // element carrying the bad reference
	TargetID  string // element it references
	Endpoint  string // "start"/"end" for forward bindings
}

func (i Issue) String() string {
	if i.Endpoint != "" {
		return fmt.Sprintf("%s: %s %s binding -> %s", i.Kind, i.ElementID, i.Endpoint, i.TargetID)
	}
	return fmt.Sprintf("%s: %s -> %s", i.Kind, i.ElementID, i.TargetID)
}

// Check reports binding consistency problems. Forward bindings must resolve
// to a live bindable element that lists the linear element back. Back
// references that no binding supports are reported as stale; they are never
// removed here.
func (s *Scene) Check() []Issue {
	var issues []Issue

	for _, el := range s.elements {
		l, ok := el.(*element.Linear)
		if !ok || l.IsDeleted {
			continue
		}
		for _, ep := range []element.Endpoint{element.Start, element.End} {
			b := l.Binding(ep)
			if b == nil {
				continue
			}
			issue := Issue{ElementID: l.ID, TargetID: b.ElementID, Endpoint: ep.String()}

			target := s.Get(b.ElementID)
			switch {
			case target == nil:
				issue.Kind = IssueMissingTarget
			case target.Common().IsDeleted:
				issue.Kind = IssueDeletedTarget
			case !element.IsBindable(target):
				issue.Kind = IssueNotBindable
			case !element.HasBoundID(target.Common().BoundElementIDs, l.ID):
				issue.Kind = IssueMissingBackReference
			default:
				continue
			}
			issues = append(issues, issue)
		}
	}

	for _, el := range s.elements {
		base := el.Common()
		if base.IsDeleted {
			continue
		}
		for _, id := range base.BoundElementIDs {
			if !s.boundTo(id, base.ID) {
				issues = append(issues, Issue{
					Kind:      IssueStaleBackReference,
					ElementID: base.ID,
					TargetID:  id,
				})
			}
		}
	}

	return issues
}

// boundTo reports whether linear element lineID has a binding to targetID.
func (s *Scene) boundTo(lineID, targetID string) bool {
	l, ok := s.Get(lineID).(*element.Linear)
	if !ok || l.IsDeleted {
		return false
	}
	return (l.StartBinding != nil && l.StartBinding.ElementID == targetID) ||
		(l.EndBinding != nil && l.EndBinding.ElementID == targetID)
}

// Package returns provides the purchase-return reconciliation workflow:
// a finite-state machine over return documents and the inventory restoration
// step that runs exactly once when a return completes.
package returns

import (
	"pharmacore/internal/core/apperror"
)

// Status is the lifecycle state of a purchase return.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusProcessed Status = "processed"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// IsValid reports whether the status is one of the known values.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusProcessed, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// transitions is the explicit edge table. Anything not listed is rejected;
// string-equality checks on a status field are not a state machine.
var transitions = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusRejected},
	StatusApproved:  {StatusProcessed, StatusRejected},
	StatusProcessed: {StatusCompleted, StatusRejected},
}

// CanTransition reports whether the edge from -> to exists.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates an edge. A repeated transition into the current
// terminal completed state is the caller's signal for a no-op, so it is
// reported distinctly from an invalid edge.
func Transition(from, to Status) error {
	if from == to && from == StatusCompleted {
		// no-op re-entry, handled by the workflow
		return nil
	}
	if !CanTransition(from, to) {
		return apperror.NewInvalidTransition(from.String(), to.String())
	}
	return nil
}

// RestorationStatus summarizes the inventory effect of a completed return.
type RestorationStatus string

const (
	// RestorationCompleted: every eligible item was restored
	RestorationCompleted RestorationStatus = "completed"
	// RestorationPartial: at least one eligible item was skipped
	RestorationPartial RestorationStatus = "partial"
)

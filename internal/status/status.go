// Package status defines the order lifecycle state machine shared by the
// HTTP service and the synchronizing clients. Both sides consult the same
// transition table before attempting a status change, so an invalid move is
// rejected locally before any request is issued and rejected again server
// side if a stale client tries anyway.
package status

// Status is an order lifecycle state.
type Status string

const (
	Pending    Status = "PENDING"
	InProgress Status = "IN_PROGRESS"
	Halted     Status = "HALTED"
	Completed  Status = "COMPLETED"
	Canceled   Status = "CANCELED"
)

// All lists every known status in display order.
var All = []Status{Pending, InProgress, Halted, Completed, Canceled}

// transitions is the single source of truth for legal status moves.
// Completed and Canceled are terminal.
var transitions = map[Status][]Status{
	Pending:    {InProgress, Canceled},
	InProgress: {Completed, Halted, Canceled},
	Halted:     {InProgress, Canceled},
	Completed:  {},
	Canceled:   {},
}

// ValidTargets returns the set of statuses reachable from the given status.
// Unknown statuses yield an empty set rather than an error; a malformed
// payload must degrade to "no moves allowed", never crash a shared view.
func ValidTargets(from Status) []Status {
	targets, ok := transitions[from]
	if !ok {
		return nil
	}
	out := make([]Status, len(targets))
	copy(out, targets)
	return out
}

// IsValidTransition reports whether moving from one status to another is
// allowed by the transition table.
func IsValidTransition(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status has no outbound transitions.
func Terminal(s Status) bool {
	return s == Completed || s == Canceled
}

// Known reports whether the status is one of the five defined states.
func Known(s Status) bool {
	_, ok := transitions[s]
	return ok
}

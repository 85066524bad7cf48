package order

import "fmt"

// ErrIllegalTransition is returned when a status-transition method is called
// from a status that does not permit it. The order is left unmutated.
type ErrIllegalTransition struct {
	From Status
	To   Status
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("order: illegal transition %s -> %s", e.From, e.To)
}

// ErrInvalidOrder is returned by create when the requested order parameters
// are not admissible.
type ErrInvalidOrder struct {
	Reason string
}

func (e *ErrInvalidOrder) Error() string { return "order: invalid order: " + e.Reason }

// legalNextStatuses is the permitted status-transition table (spec.md §4.2).
var legalNextStatuses = map[Status][]Status{
	StatusPending:         {StatusSubmitted, StatusRejected},
	StatusSubmitted:       {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted:        {StatusPartiallyFilled, StatusFilled, StatusCancelled, StatusExpired},
	StatusPartiallyFilled: {StatusPartiallyFilled, StatusFilled, StatusCancelled, StatusExpired},
}

func canTransition(from, to Status) bool {
	for _, s := range legalNextStatuses[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Package lifecycle holds the contract state machine: the valid statuses,
// the transitions between them and the predicates derived from a status.
//
// Every function here is pure. Callers read the current status, ask the
// engine for a decision and persist the result themselves.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSameStatus is returned when the target status equals the current one.
var ErrSameStatus = errors.New("status unchanged")

// ErrUnknownStatus is returned when a status is not part of the lifecycle.
var ErrUnknownStatus = errors.New("unknown status")

// ErrIllegalTransition is returned when the target is not reachable from the current status.
var ErrIllegalTransition = errors.New("illegal status transition")

// transitions is the complete transition table. Order within each slice is
// the order reported by NextStatuses.
var transitions = map[Status][]Status{
	StatusCreated:  {StatusApproved, StatusRevoked},
	StatusApproved: {StatusSent},
	StatusSent:     {StatusSigned, StatusRevoked},
	StatusSigned:   {StatusLocked},
	StatusLocked:   {},
	StatusRevoked:  {},
}

// TransitionError describes a rejected transition. It unwraps to one of
// ErrSameStatus, ErrUnknownStatus or ErrIllegalTransition.
type TransitionError struct {
	From    Status
	To      Status
	Allowed []Status
	kind    error
}

func (e *TransitionError) Error() string {
	switch e.kind {
	case ErrSameStatus:
		return fmt.Sprintf("Contract is already in status: %s", e.From)
	case ErrUnknownStatus:
		return fmt.Sprintf("Invalid current status: %s", e.From)
	}

	allowed := "No transitions allowed"
	if len(e.Allowed) > 0 {
		names := make([]string, len(e.Allowed))
		for i, s := range e.Allowed {
			names[i] = string(s)
		}
		allowed = "Allowed: " + strings.Join(names, ", ")
	}
	return fmt.Sprintf("Cannot transition from %s to %s. %s", e.From, e.To, allowed)
}

func (e *TransitionError) Unwrap() error {
	return e.kind
}

// ValidateTransition decides whether current may move to target.
// A self-transition is always rejected, even for terminal statuses.
func ValidateTransition(current, target Status) error {
	if current == target {
		return &TransitionError{From: current, To: target, kind: ErrSameStatus}
	}

	allowed, ok := transitions[current]
	if !ok {
		return &TransitionError{From: current, To: target, kind: ErrUnknownStatus}
	}

	for _, s := range allowed {
		if s == target {
			return nil
		}
	}

	return &TransitionError{
		From:    current,
		To:      target,
		Allowed: NextStatuses(current),
		kind:    ErrIllegalTransition,
	}
}

// NextStatuses returns the statuses reachable from current in one step.
// Terminal and unknown statuses yield an empty, non-nil slice.
func NextStatuses(current Status) []Status {
	allowed := transitions[current]
	out := make([]Status, len(allowed))
	copy(out, allowed)
	return out
}

// CanModifyFields reports whether field values may be edited in status.
// Fields stay editable after SIGNED; only LOCKED and REVOKED freeze them.
func CanModifyFields(status Status) bool {
	return status != StatusLocked && status != StatusRevoked
}

// CanDelete reports whether a contract in status may be deleted.
// No endpoint consults it yet.
func CanDelete(status Status) bool {
	switch status {
	case StatusSent, StatusSigned, StatusLocked:
		return false
	default:
		return true
	}
}

// Transitions returns a copy of the full transition table.
func Transitions() map[Status][]Status {
	out := make(map[Status][]Status, len(transitions))
	for from := range transitions {
		out[from] = NextStatuses(from)
	}
	return out
}

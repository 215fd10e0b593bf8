package lifecycle

import "fmt"

// Status is the lifecycle state of a contract.
type Status string

const (
	StatusCreated  Status = "CREATED"
	StatusApproved Status = "APPROVED"
	StatusSent     Status = "SENT"
	StatusSigned   Status = "SIGNED"
	StatusLocked   Status = "LOCKED"
	StatusRevoked  Status = "REVOKED"
)

// allStatuses lists every status in lifecycle order.
var allStatuses = []Status{
	StatusCreated,
	StatusApproved,
	StatusSent,
	StatusSigned,
	StatusLocked,
	StatusRevoked,
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether s has no outgoing transitions.
// Unknown statuses are not terminal.
func (s Status) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// ParseStatus converts a wire value into a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrUnknownStatus, s)
	}
	return status, nil
}

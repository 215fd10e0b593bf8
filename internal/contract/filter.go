package contract

import (
	"errors"
	"fmt"

	"github.com/daap14/contractd/internal/lifecycle"
)

// ErrInvalidFilter is returned for an unrecognised status filter.
var ErrInvalidFilter = errors.New("invalid status filter")

// Named status groups accepted by the list filter in addition to exact statuses.
const (
	GroupAll     = "all"
	GroupActive  = "active"
	GroupPending = "pending"
	GroupSigned  = "signed"
)

var statusGroups = map[string][]lifecycle.Status{
	GroupActive:  {lifecycle.StatusCreated, lifecycle.StatusApproved, lifecycle.StatusSent},
	GroupPending: {lifecycle.StatusCreated, lifecycle.StatusApproved},
	GroupSigned:  {lifecycle.StatusSigned, lifecycle.StatusLocked},
}

// ParseStatusFilter resolves a status query value. Empty and "all" mean no
// filter; group names expand to their members; anything else must be an
// exact status.
func ParseStatusFilter(v string) ([]lifecycle.Status, error) {
	if v == "" || v == GroupAll {
		return nil, nil
	}
	if group, ok := statusGroups[v]; ok {
		out := make([]lifecycle.Status, len(group))
		copy(out, group)
		return out, nil
	}
	status, err := lifecycle.ParseStatus(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFilter, v)
	}
	return []lifecycle.Status{status}, nil
}

// matches reports whether c passes f.
func (f ListFilter) matches(c *Contract) bool {
	if f.BlueprintID != nil && c.BlueprintID != *f.BlueprintID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if c.Status == s {
			return true
		}
	}
	return false
}

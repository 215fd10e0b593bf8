package contract

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/daap14/contractd/internal/lifecycle"
)

// ErrNotFound is returned when a contract record is not found.
var ErrNotFound = errors.New("contract not found")

// ErrVersionConflict is returned when a write loses a race against another
// write to the same contract.
var ErrVersionConflict = errors.New("contract was modified concurrently")

// ListFilter holds optional filters for listing contracts.
type ListFilter struct {
	Statuses    []lifecycle.Status // empty means any status
	BlueprintID *uuid.UUID
}

// Repository provides persistence for contracts. Update methods are
// compare-and-swap on Contract.Version: they succeed only when the stored
// version equals version, and bump it by one.
type Repository interface {
	Create(ctx context.Context, c *Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*Contract, error)
	List(ctx context.Context, filter ListFilter) ([]Contract, error)
	UpdateFields(ctx context.Context, id uuid.UUID, version int, values []FieldValue) (*Contract, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, version int, status lifecycle.Status) (*Contract, error)
}

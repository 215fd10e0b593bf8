package contract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/daap14/contractd/internal/blueprint"
	"github.com/daap14/contractd/internal/lifecycle"
)

// ErrIllegalState is returned when field values are edited in a status that
// forbids it.
var ErrIllegalState = errors.New("contract fields are immutable")

// ErrFieldMismatch is returned when submitted field values do not line up
// with the contract's fields.
var ErrFieldMismatch = errors.New("field values do not match contract fields")

// ErrInvalidContract is returned for a missing contract name.
var ErrInvalidContract = errors.New("invalid contract")

// defaultMaxAttempts bounds the read-decide-write loop on version conflicts.
const defaultMaxAttempts = 3

// StateError reports a field edit attempted in an immutable status.
type StateError struct {
	Status lifecycle.Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("Cannot modify contract in %s status", e.Status)
}

func (e *StateError) Unwrap() error {
	return ErrIllegalState
}

// Service is the contract store. It owns the read-decide-write sequence for
// every mutation and delegates status decisions to the lifecycle package.
type Service struct {
	repo        Repository
	blueprints  blueprint.Repository
	maxAttempts int
}

// NewService creates a new contract Service.
func NewService(repo Repository, blueprints blueprint.Repository) *Service {
	return &Service{
		repo:        repo,
		blueprints:  blueprints,
		maxAttempts: defaultMaxAttempts,
	}
}

// Create instantiates a contract from a blueprint snapshot. Every field
// starts null and the status starts CREATED.
func (s *Service) Create(ctx context.Context, name string, blueprintID uuid.UUID) (*Contract, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidContract)
	}

	bp, err := s.blueprints.GetByID(ctx, blueprintID)
	if err != nil {
		if errors.Is(err, blueprint.ErrBlueprintNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("looking up blueprint: %w", err)
	}

	values, err := SeedFieldValues(bp.Fields)
	if err != nil {
		return nil, fmt.Errorf("blueprint %s: %w", bp.ID, err)
	}

	c := &Contract{
		Name:          name,
		BlueprintID:   bp.ID,
		BlueprintName: bp.Name,
		Status:        lifecycle.StatusCreated,
		FieldValues:   values,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("creating contract: %w", err)
	}
	return c, nil
}

// List returns contracts matching filter, newest first, without field values.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Contract, error) {
	return s.repo.List(ctx, filter)
}

// GetByID returns the full contract or ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Contract, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateFields replaces every field value of the contract. The submitted
// sequence must name the same fields, in the same order and with the same
// types, as the contract; labels are kept from the snapshot.
func (s *Service) UpdateFields(ctx context.Context, id uuid.UUID, values []FieldValue) (*Contract, error) {
	return s.mutate(ctx, id, "UpdateFields", func(c *Contract) (*Contract, error) {
		if !lifecycle.CanModifyFields(c.Status) {
			return nil, &StateError{Status: c.Status}
		}
		merged, err := alignFieldValues(c.FieldValues, values)
		if err != nil {
			return nil, err
		}
		return s.repo.UpdateFields(ctx, c.ID, c.Version, merged)
	})
}

// UpdateStatus moves the contract to target if the lifecycle allows it.
// Lifecycle rejections are returned unwrapped so their message reaches the
// caller verbatim.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, target lifecycle.Status) (*Contract, error) {
	return s.mutate(ctx, id, "UpdateStatus", func(c *Contract) (*Contract, error) {
		if err := lifecycle.ValidateTransition(c.Status, target); err != nil {
			return nil, err
		}
		return s.repo.UpdateStatus(ctx, c.ID, c.Version, target)
	})
}

// NextStatuses returns the contract's current status and the statuses it may
// move to next.
func (s *Service) NextStatuses(ctx context.Context, id uuid.UUID) (lifecycle.Status, []lifecycle.Status, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return c.Status, lifecycle.NextStatuses(c.Status), nil
}

// mutate runs read-decide-write, retrying from a fresh read when the write
// loses a version race.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, op string, decide func(*Contract) (*Contract, error)) (*Contract, error) {
	for attempt := 1; ; attempt++ {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		updated, err := decide(current)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, ErrVersionConflict) || attempt >= s.maxAttempts {
			return nil, err
		}

		slog.Debug("contract version conflict, retrying",
			"operation", op,
			"contract", id,
			"version", current.Version,
			"attempt", attempt,
		)
	}
}

// alignFieldValues checks submitted against current and returns the new
// sequence with labels taken from current.
func alignFieldValues(current, submitted []FieldValue) ([]FieldValue, error) {
	if len(submitted) != len(current) {
		return nil, fmt.Errorf("%w: expected %d field values, got %d", ErrFieldMismatch, len(current), len(submitted))
	}

	out := make([]FieldValue, len(current))
	for i, cur := range current {
		sub := submitted[i]
		if sub.FieldID != cur.FieldID {
			return nil, fmt.Errorf("%w: fieldValues[%d].fieldId must be %s", ErrFieldMismatch, i, cur.FieldID)
		}
		if sub.Value == nil || sub.Type() != cur.Type() {
			return nil, fmt.Errorf("%w: fieldValues[%d].type must be %s", ErrFieldMismatch, i, cur.Type())
		}
		out[i] = FieldValue{FieldID: cur.FieldID, Label: cur.Label, Value: sub.Value}
	}
	return out, nil
}

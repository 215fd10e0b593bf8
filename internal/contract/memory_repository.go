package contract

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daap14/contractd/internal/lifecycle"
)

// MemoryRepository implements Repository in process memory with the same
// versioning rules as the Postgres implementation.
type MemoryRepository struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*Contract
	order []uuid.UUID
	now   func() time.Time
}

// NewMemoryRepository creates an empty in-memory Repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID: make(map[uuid.UUID]*Contract),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a copy of c and fills in its ID, version and timestamps.
func (r *MemoryRepository) Create(_ context.Context, c *Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.Status == "" {
		c.Status = lifecycle.StatusCreated
	}
	now := r.now()
	c.ID = uuid.New()
	c.Version = 1
	c.CreatedAt = now
	c.UpdatedAt = now

	r.byID[c.ID] = cloneContract(c, true)
	r.order = append(r.order, c.ID)
	return nil
}

// GetByID returns a copy of the contract, including field values.
func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneContract(c, true), nil
}

// List returns contracts matching filter, newest first, without field values.
func (r *MemoryRepository) List(_ context.Context, filter ListFilter) ([]Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	contracts := []Contract{}
	for i := len(r.order) - 1; i >= 0; i-- {
		c := r.byID[r.order[i]]
		if filter.matches(c) {
			contracts = append(contracts, *cloneContract(c, false))
		}
	}
	return contracts, nil
}

// UpdateFields replaces the field values when version matches.
func (r *MemoryRepository) UpdateFields(_ context.Context, id uuid.UUID, version int, values []FieldValue) (*Contract, error) {
	return r.update(id, version, func(c *Contract) {
		c.FieldValues = make([]FieldValue, len(values))
		copy(c.FieldValues, values)
	})
}

// UpdateStatus sets the status when version matches.
func (r *MemoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, version int, status lifecycle.Status) (*Contract, error) {
	return r.update(id, version, func(c *Contract) {
		c.Status = status
	})
}

func (r *MemoryRepository) update(id uuid.UUID, version int, apply func(*Contract)) (*Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if c.Version != version {
		return nil, ErrVersionConflict
	}

	apply(c)
	c.Version++
	c.UpdatedAt = r.now()
	return cloneContract(c, true), nil
}

func cloneContract(c *Contract, withValues bool) *Contract {
	out := *c
	out.FieldValues = nil
	if withValues {
		out.FieldValues = make([]FieldValue, len(c.FieldValues))
		copy(out.FieldValues, c.FieldValues)
	}
	return &out
}

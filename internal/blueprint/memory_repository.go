package blueprint

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository implements Repository in process memory. It backs the
// server when STORE=memory and doubles as a fake in service tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*Blueprint
	byName map[string]uuid.UUID
	order  []uuid.UUID
	now    func() time.Time
}

// NewMemoryRepository creates an empty in-memory Repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[uuid.UUID]*Blueprint),
		byName: make(map[string]uuid.UUID),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a copy of bp and fills in its ID and timestamps.
func (r *MemoryRepository) Create(_ context.Context, bp *Blueprint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[bp.Name]; exists {
		return ErrDuplicateBlueprintName
	}

	now := r.now()
	bp.ID = uuid.New()
	bp.CreatedAt = now
	bp.UpdatedAt = now

	stored := clone(bp)
	r.byID[bp.ID] = stored
	r.byName[bp.Name] = bp.ID
	r.order = append(r.order, bp.ID)
	return nil
}

// GetByID returns a copy of the blueprint with the given ID.
func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Blueprint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bp, ok := r.byID[id]
	if !ok {
		return nil, ErrBlueprintNotFound
	}
	return clone(bp), nil
}

// GetByName returns a copy of the blueprint with the given name.
func (r *MemoryRepository) GetByName(_ context.Context, name string) (*Blueprint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[name]
	if !ok {
		return nil, ErrBlueprintNotFound
	}
	return clone(r.byID[id]), nil
}

// List returns all blueprints, newest first.
func (r *MemoryRepository) List(_ context.Context) ([]Blueprint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	blueprints := make([]Blueprint, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		blueprints = append(blueprints, *clone(r.byID[r.order[i]]))
	}
	return blueprints, nil
}

func clone(bp *Blueprint) *Blueprint {
	out := *bp
	out.Fields = make([]Field, len(bp.Fields))
	copy(out.Fields, bp.Fields)
	return &out
}

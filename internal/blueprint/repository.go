package blueprint

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrBlueprintNotFound is returned when a blueprint record is not found.
var ErrBlueprintNotFound = errors.New("blueprint not found")

// ErrDuplicateBlueprintName is returned when a blueprint with the same name already exists.
var ErrDuplicateBlueprintName = errors.New("blueprint name already exists")

// Repository provides persistence for blueprints.
// Blueprints are immutable, so there is no Update or Delete method.
type Repository interface {
	Create(ctx context.Context, bp *Blueprint) error
	GetByID(ctx context.Context, id uuid.UUID) (*Blueprint, error)
	GetByName(ctx context.Context, name string) (*Blueprint, error)
	List(ctx context.Context) ([]Blueprint, error)
}

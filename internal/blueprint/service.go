package blueprint

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidFieldType is returned when a field type is outside FieldTypes.
var ErrInvalidFieldType = errors.New("invalid field type")

// ErrInvalidBlueprint is returned for a missing name or field label.
var ErrInvalidBlueprint = errors.New("invalid blueprint")

// FieldSpec is the caller-supplied description of a field to create.
type FieldSpec struct {
	Type     FieldType
	Label    string
	Position Position
}

// Service is the blueprint registry.
type Service struct {
	repo Repository
}

// NewService creates a new blueprint Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates the field specs, assigns an ID to every field and stores
// the blueprint. Names are unique; a collision yields ErrDuplicateBlueprintName
// from every store.
func (s *Service) Create(ctx context.Context, name string, specs []FieldSpec) (*Blueprint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidBlueprint)
	}

	fields := make([]Field, 0, len(specs))
	for i, spec := range specs {
		if !spec.Type.IsValid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidFieldType, InvalidFieldTypeMessage(string(spec.Type)))
		}
		label := strings.TrimSpace(spec.Label)
		if label == "" {
			return nil, fmt.Errorf("%w: fields[%d].label is required", ErrInvalidBlueprint, i)
		}
		fields = append(fields, Field{
			ID:       uuid.New(),
			Type:     spec.Type,
			Label:    label,
			Position: spec.Position,
		})
	}

	// The unique constraint still catches a name taken between this check
	// and the insert.
	if _, err := s.repo.GetByName(ctx, name); err == nil {
		return nil, ErrDuplicateBlueprintName
	} else if !errors.Is(err, ErrBlueprintNotFound) {
		return nil, fmt.Errorf("checking blueprint name: %w", err)
	}

	bp := &Blueprint{Name: name, Fields: fields}
	if err := s.repo.Create(ctx, bp); err != nil {
		if errors.Is(err, ErrDuplicateBlueprintName) {
			return nil, err
		}
		return nil, fmt.Errorf("creating blueprint: %w", err)
	}
	return bp, nil
}

// List returns all blueprints, newest first.
func (s *Service) List(ctx context.Context) ([]Blueprint, error) {
	return s.repo.List(ctx)
}

// GetByID returns the blueprint or ErrBlueprintNotFound.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Blueprint, error) {
	return s.repo.GetByID(ctx, id)
}

// InvalidFieldTypeMessage is the user-facing text for an unknown field type.
func InvalidFieldTypeMessage(fieldType string) string {
	names := make([]string, len(FieldTypes))
	for i, t := range FieldTypes {
		names[i] = string(t)
	}
	return fmt.Sprintf("Invalid field type: %s. Must be one of: %s", fieldType, strings.Join(names, ", "))
}

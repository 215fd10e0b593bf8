package contract

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/daap14/contractd/internal/blueprint"
	"github.com/daap14/contractd/internal/lifecycle"
)

// Contract represents a row in the contracts table.
type Contract struct {
	ID          uuid.UUID
	Name        string
	BlueprintID uuid.UUID
	// BlueprintName is copied from the blueprint at creation and never refreshed.
	BlueprintName string
	Status        lifecycle.Status
	// FieldValues is nil on records returned by Repository.List.
	FieldValues []FieldValue
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FieldValue is the value slot for one blueprint field.
type FieldValue struct {
	FieldID uuid.UUID
	Label   string
	Value   Value
}

// Type returns the field type carried by the value variant.
func (f FieldValue) Type() blueprint.FieldType {
	if f.Value == nil {
		return ""
	}
	return f.Value.FieldType()
}

// SeedFieldValues builds one null value per blueprint field, preserving order.
// A field with an unknown type fails with blueprint.ErrInvalidFieldType.
func SeedFieldValues(fields []blueprint.Field) ([]FieldValue, error) {
	values := make([]FieldValue, 0, len(fields))
	for _, f := range fields {
		v, err := NullValue(f.Type)
		if err != nil {
			return nil, fmt.Errorf("seeding field %s: %w", f.ID, err)
		}
		values = append(values, FieldValue{FieldID: f.ID, Label: f.Label, Value: v})
	}
	return values, nil
}

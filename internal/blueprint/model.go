package blueprint

import (
	"time"

	"github.com/google/uuid"
)

// FieldType is the closed set of input kinds a blueprint field can have.
type FieldType string

const (
	FieldText      FieldType = "text"
	FieldDate      FieldType = "date"
	FieldSignature FieldType = "signature"
	FieldCheckbox  FieldType = "checkbox"
)

// FieldTypes lists every valid field type in display order.
var FieldTypes = []FieldType{FieldText, FieldDate, FieldSignature, FieldCheckbox}

// IsValid reports whether t is one of FieldTypes.
func (t FieldType) IsValid() bool {
	switch t {
	case FieldText, FieldDate, FieldSignature, FieldCheckbox:
		return true
	default:
		return false
	}
}

// Position is where a field is rendered on the contract page.
type Position struct {
	X float64
	Y float64
}

// Field is one template entry of a blueprint.
type Field struct {
	ID       uuid.UUID
	Type     FieldType
	Label    string
	Position Position
}

// Blueprint represents a row in the blueprints table.
type Blueprint struct {
	ID        uuid.UUID
	Name      string
	Fields    []Field
	CreatedAt time.Time
	UpdatedAt time.Time
}

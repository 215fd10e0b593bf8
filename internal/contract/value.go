package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/daap14/contractd/internal/blueprint"
)

// ErrInvalidValue is returned when a raw value does not fit its field type.
var ErrInvalidValue = errors.New("invalid field value")

// DateLayout is the wire format of date field values.
const DateLayout = "2006-01-02"

// Value is the typed content of a field. It is a closed union: TextValue,
// DateValue, SignatureValue and CheckboxValue. A nil pointer inside the
// variant means the field has not been filled in.
type Value interface {
	FieldType() blueprint.FieldType
	IsNull() bool
	// Raw returns nil, a string or a bool.
	Raw() any
	sealed()
}

type TextValue struct{ Text *string }

type DateValue struct{ Date *string }

type SignatureValue struct{ Signed *bool }

type CheckboxValue struct{ Checked *bool }

func (TextValue) FieldType() blueprint.FieldType      { return blueprint.FieldText }
func (DateValue) FieldType() blueprint.FieldType      { return blueprint.FieldDate }
func (SignatureValue) FieldType() blueprint.FieldType { return blueprint.FieldSignature }
func (CheckboxValue) FieldType() blueprint.FieldType  { return blueprint.FieldCheckbox }

func (v TextValue) IsNull() bool      { return v.Text == nil }
func (v DateValue) IsNull() bool      { return v.Date == nil }
func (v SignatureValue) IsNull() bool { return v.Signed == nil }
func (v CheckboxValue) IsNull() bool  { return v.Checked == nil }

func (v TextValue) Raw() any      { return derefString(v.Text) }
func (v DateValue) Raw() any      { return derefString(v.Date) }
func (v SignatureValue) Raw() any { return derefBool(v.Signed) }
func (v CheckboxValue) Raw() any  { return derefBool(v.Checked) }

func (TextValue) sealed()      {}
func (DateValue) sealed()      {}
func (SignatureValue) sealed() {}
func (CheckboxValue) sealed()  {}

// NullValue returns the empty variant for t.
func NullValue(t blueprint.FieldType) (Value, error) {
	switch t {
	case blueprint.FieldText:
		return TextValue{}, nil
	case blueprint.FieldDate:
		return DateValue{}, nil
	case blueprint.FieldSignature:
		return SignatureValue{}, nil
	case blueprint.FieldCheckbox:
		return CheckboxValue{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", blueprint.ErrInvalidFieldType, blueprint.InvalidFieldTypeMessage(string(t)))
	}
}

// DecodeValue parses a JSON value for a field of type t. Absent and null
// input both decode to the null variant. An empty date string is treated as
// null since that is what a cleared date input submits.
func DecodeValue(t blueprint.FieldType, raw json.RawMessage) (Value, error) {
	empty, err := NullValue(t)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return empty, nil
	}

	switch t {
	case blueprint.FieldText:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: text value must be a string", ErrInvalidValue)
		}
		return TextValue{Text: &s}, nil
	case blueprint.FieldDate:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: date value must be a string", ErrInvalidValue)
		}
		if s == "" {
			return DateValue{}, nil
		}
		if _, err := time.Parse(DateLayout, s); err != nil {
			return nil, fmt.Errorf("%w: date value must use the YYYY-MM-DD format", ErrInvalidValue)
		}
		return DateValue{Date: &s}, nil
	case blueprint.FieldSignature:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("%w: signature value must be a boolean", ErrInvalidValue)
		}
		return SignatureValue{Signed: &b}, nil
	default:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("%w: checkbox value must be a boolean", ErrInvalidValue)
		}
		return CheckboxValue{Checked: &b}, nil
	}
}

// EncodeValue renders v as JSON. A nil Value encodes as null.
func EncodeValue(v Value) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage("null"), nil
	}
	return json.Marshal(v.Raw())
}

func derefString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func derefBool(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/daap14/contractd/internal/blueprint"
	"github.com/daap14/contractd/internal/contract"
)

// CreateContractRequest mirrors the fields needed for create contract validation.
type CreateContractRequest struct {
	Name        string
	BlueprintID string
}

// ValidateCreateContractRequest validates a create contract request and
// returns the parsed blueprint ID when it is well formed.
func ValidateCreateContractRequest(req CreateContractRequest) (uuid.UUID, []FieldError) {
	var errs []FieldError

	name := strings.TrimSpace(req.Name)
	if name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	} else if utf8.RuneCountInString(name) > maxNameLen {
		errs = append(errs, FieldError{Field: "name", Message: fmt.Sprintf("name must be at most %d characters", maxNameLen)})
	}

	var blueprintID uuid.UUID
	if strings.TrimSpace(req.BlueprintID) == "" {
		errs = append(errs, FieldError{Field: "blueprintId", Message: "blueprintId is required"})
	} else {
		id, err := uuid.Parse(strings.TrimSpace(req.BlueprintID))
		if err != nil {
			errs = append(errs, FieldError{Field: "blueprintId", Message: "blueprintId must be a valid UUID"})
		}
		blueprintID = id
	}

	return blueprintID, errs
}

// FieldValueInput mirrors one entry of an update fields request. Value is
// kept raw until the type is known.
type FieldValueInput struct {
	FieldID string
	Type    string
	Value   json.RawMessage
}

// ValidateFieldValues parses every entry into a typed contract.FieldValue.
// Whether the entries line up with the stored contract is checked later by
// the contract service.
func ValidateFieldValues(inputs []FieldValueInput, present bool) ([]contract.FieldValue, []FieldError) {
	if !present {
		return nil, []FieldError{{Field: "fieldValues", Message: "fieldValues must be an array"}}
	}

	var errs []FieldError
	values := make([]contract.FieldValue, 0, len(inputs))
	for i, in := range inputs {
		prefix := fmt.Sprintf("fieldValues[%d]", i)

		id, err := uuid.Parse(strings.TrimSpace(in.FieldID))
		if err != nil {
			errs = append(errs, FieldError{Field: prefix + ".fieldId", Message: "fieldId must be a valid UUID"})
		}

		fieldType := blueprint.FieldType(strings.TrimSpace(in.Type))
		if !fieldType.IsValid() {
			errs = append(errs, FieldError{Field: prefix + ".type", Message: blueprint.InvalidFieldTypeMessage(string(fieldType))})
			continue
		}

		v, err := contract.DecodeValue(fieldType, in.Value)
		if err != nil {
			msg := err.Error()
			if errors.Is(err, contract.ErrInvalidValue) {
				msg = strings.TrimPrefix(msg, contract.ErrInvalidValue.Error()+": ")
			}
			errs = append(errs, FieldError{Field: prefix + ".value", Message: msg})
			continue
		}

		values = append(values, contract.FieldValue{FieldID: id, Value: v})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return values, nil
}

// ValidateUpdateStatusRequest checks that a target status was supplied.
// Membership in the lifecycle is decided by the lifecycle engine itself.
func ValidateUpdateStatusRequest(status string) []FieldError {
	if strings.TrimSpace(status) == "" {
		return []FieldError{{Field: "status", Message: "status is required"}}
	}
	return nil
}

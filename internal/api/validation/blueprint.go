package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxBlueprintFields bounds the number of fields a blueprint may declare.
const maxBlueprintFields = 100

// BlueprintFieldInput mirrors one entry of a create blueprint request.
type BlueprintFieldInput struct {
	Type  string
	Label string
}

// CreateBlueprintRequest mirrors the fields needed for create blueprint validation.
type CreateBlueprintRequest struct {
	Name      string
	Fields    []BlueprintFieldInput
	HasFields bool
}

// ValidateCreateBlueprintRequest checks presence and size limits. Field type
// membership is left to the blueprint service so the error text stays in one
// place.
func ValidateCreateBlueprintRequest(req CreateBlueprintRequest) []FieldError {
	var errs []FieldError

	name := strings.TrimSpace(req.Name)
	if name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	} else if utf8.RuneCountInString(name) > maxNameLen {
		errs = append(errs, FieldError{Field: "name", Message: fmt.Sprintf("name must be at most %d characters", maxNameLen)})
	}

	if !req.HasFields {
		errs = append(errs, FieldError{Field: "fields", Message: "fields array is required"})
		return errs
	}
	if len(req.Fields) > maxBlueprintFields {
		errs = append(errs, FieldError{Field: "fields", Message: fmt.Sprintf("fields must contain at most %d entries", maxBlueprintFields)})
		return errs
	}

	for i, f := range req.Fields {
		if strings.TrimSpace(f.Type) == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("fields[%d].type", i), Message: "type is required"})
		}
		label := strings.TrimSpace(f.Label)
		if label == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("fields[%d].label", i), Message: "label is required"})
		} else if utf8.RuneCountInString(label) > maxNameLen {
			errs = append(errs, FieldError{Field: fmt.Sprintf("fields[%d].label", i), Message: fmt.Sprintf("label must be at most %d characters", maxNameLen)})
		}
	}

	return errs
}

package validation

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// maxNameLen bounds blueprint, contract and field label lengths.
const maxNameLen = 200

package model

import (
	"fmt"
	"strings"
)

// MaxParameterKeyLength bounds section and parameter_name.
const MaxParameterKeyLength = 100

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateComponentName checks that name is usable as a table and
// page_identifier prefix.
func ValidateComponentName(name string) error {
	var ve ValidationError
	switch {
	case name == "":
		ve.Errors = append(ve.Errors, FieldError{Field: "name", Message: "is required"})
	case len(name) > MaxComponentNameLength:
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "name",
			Message: fmt.Sprintf("must be %d characters or fewer", MaxComponentNameLength),
		})
	case !componentNameRe.MatchString(name):
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "name",
			Message: fmt.Sprintf("invalid value %q (lowercase letters, digits and single underscores)", name),
		})
	}
	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateParameter checks a Parameter before it is written.
// Sections are free-form: there is no registry of valid sections.
func ValidateParameter(p *Parameter) error {
	var ve ValidationError

	checkKey := func(field, v string) {
		if strings.TrimSpace(v) == "" {
			ve.Errors = append(ve.Errors, FieldError{Field: field, Message: "is required"})
		} else if len([]rune(v)) > MaxParameterKeyLength {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   field,
				Message: fmt.Sprintf("must be %d characters or fewer", MaxParameterKeyLength),
			})
		}
	}
	checkKey("section", p.Section)
	checkKey("parameter_name", p.Name)

	if p.ValueType != "" && !p.ValueType.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "value_type",
			Message: fmt.Sprintf("invalid value %q", p.ValueType),
		})
	}

	if p.MinRange != nil && p.MaxRange != nil && *p.MinRange > *p.MaxRange {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "min_range",
			Message: fmt.Sprintf("must not exceed max_range (%g > %g)", *p.MinRange, *p.MaxRange),
		})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

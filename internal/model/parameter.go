package model

import (
	"strconv"
	"strings"
	"time"
)

// ValueType is the render hint stored alongside a parameter value.
type ValueType string

const (
	ValueBoolean ValueType = "boolean"
	ValueNumber  ValueType = "number"
	ValueText    ValueType = "text"
)

// String returns the string representation of the value type.
func (v ValueType) String() string {
	return string(v)
}

// IsValid reports whether v is one of the known value types.
func (v ValueType) IsValid() bool {
	switch v {
	case ValueBoolean, ValueNumber, ValueText:
		return true
	}
	return false
}

// Parameter is a section-scoped configuration value. Value is always text;
// ValueType only tells a UI which widget to render.
type Parameter struct {
	Section     string    `json:"section"`
	Name        string    `json:"parameter_name"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	MinRange    *float64  `json:"min_range,omitempty"`
	MaxRange    *float64  `json:"max_range,omitempty"`
	ValueType   ValueType `json:"value_type"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ParameterFilter narrows ListParameters. Zero value lists everything.
type ParameterFilter struct {
	Section string
	Search  string // substring match on parameter_name
}

// InferValueType applies the legacy naming convention: names containing
// "enabled" or "require", or the literal values "yes"/"no", are booleans;
// numeric strings are numbers; everything else is text.
func InferValueType(name, value string) ValueType {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "enabled") || strings.Contains(lower, "require") {
		return ValueBoolean
	}
	if value == "yes" || value == "no" {
		return ValueBoolean
	}
	if IsNumeric(value) {
		return ValueNumber
	}
	return ValueText
}

// IsNumeric reports whether s is a decimal number with optional surrounding
// whitespace, sign, fraction and exponent. Hex, "Inf" and "NaN" are not numeric.
func IsNumeric(s string) bool {
	s = strings.Trim(s, " \t\n\r\v\f")
	if s == "" {
		return false
	}
	body := strings.TrimLeft(s, "+-")
	if len(s)-len(body) > 1 || body == "" {
		return false
	}
	c := body[0]
	if !(c >= '0' && c <= '9') && c != '.' {
		return false
	}
	if strings.ContainsAny(body, "xXpP_") {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

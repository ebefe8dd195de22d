// Package schema defines Salesforce object metadata types and the provider
// interface through which schemas are discovered.
package schema

import (
	"context"
	"strings"
)

// FieldType identifies a Salesforce field type. Unknown types are an
// explicit variant, never a silent fallback.
type FieldType string

// Salesforce field types.
const (
	FieldTypeString    FieldType = "string"
	FieldTypeTextArea  FieldType = "textarea"
	FieldTypeBoolean   FieldType = "boolean"
	FieldTypeInt       FieldType = "int"
	FieldTypeDouble    FieldType = "double"
	FieldTypeCurrency  FieldType = "currency"
	FieldTypePercent   FieldType = "percent"
	FieldTypeDate      FieldType = "date"
	FieldTypeDateTime  FieldType = "datetime"
	FieldTypeEmail     FieldType = "email"
	FieldTypePhone     FieldType = "phone"
	FieldTypeURL       FieldType = "url"
	FieldTypePicklist  FieldType = "picklist"
	FieldTypeReference FieldType = "reference"
	FieldTypeID        FieldType = "id"
	FieldTypeUnknown   FieldType = "unknown"
)

// ParseFieldType maps a Salesforce describe type string to a FieldType.
// Unrecognized strings map to FieldTypeUnknown.
func ParseFieldType(s string) FieldType {
	switch FieldType(strings.ToLower(s)) {
	case FieldTypeString, FieldTypeTextArea, FieldTypeBoolean, FieldTypeInt,
		FieldTypeDouble, FieldTypeCurrency, FieldTypePercent, FieldTypeDate,
		FieldTypeDateTime, FieldTypeEmail, FieldTypePhone, FieldTypeURL,
		FieldTypePicklist, FieldTypeReference, FieldTypeID:
		return FieldType(strings.ToLower(s))
	default:
		return FieldTypeUnknown
	}
}

// IsNumeric returns true for field types carrying numeric values.
func (t FieldType) IsNumeric() bool {
	switch t {
	case FieldTypeInt, FieldTypeDouble, FieldTypeCurrency, FieldTypePercent:
		return true
	default:
		return false
	}
}

// IsTextual returns true for field types carrying free-form text.
func (t FieldType) IsTextual() bool {
	switch t {
	case FieldTypeString, FieldTypeTextArea, FieldTypeEmail, FieldTypePhone, FieldTypeURL:
		return true
	default:
		return false
	}
}

// Field describes one field of a Salesforce object.
type Field struct {
	// Name is the API name, e.g. "AnnualRevenue"
	Name string `json:"name"`

	// Label is the human-readable label
	Label string `json:"label,omitempty"`

	// Type is the field type
	Type FieldType `json:"type"`

	// Required is true when the field is not nillable and has no default
	Required bool `json:"required"`

	// Unique is true when the org enforces distinct values
	Unique bool `json:"unique"`

	// Length is the maximum string length (0 = unbounded)
	Length int `json:"length,omitempty"`

	// Precision and Scale bound numeric values
	Precision int `json:"precision,omitempty"`
	Scale     int `json:"scale,omitempty"`

	// PicklistValues lists the active picklist entries
	PicklistValues []string `json:"picklistValues,omitempty"`

	// ReferenceTo names the target objects of a reference field
	ReferenceTo []string `json:"referenceTo,omitempty"`

	// DefaultValue is the org-side default, if any
	DefaultValue any `json:"defaultValue,omitempty"`
}

// ValidationRule is a named business constraint expressed as a formula.
// Per Salesforce convention the formula expresses the violation condition:
// a record is invalid when the formula evaluates to true.
type ValidationRule struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Formula      string `json:"formula"`
	ErrorMessage string `json:"errorMessage"`
	ErrorField   string `json:"errorField,omitempty"`
	Active       bool   `json:"active"`
	Severity     string `json:"severity,omitempty"`
}

// ObjectSchema bundles the describe metadata for one object type.
type ObjectSchema struct {
	Name            string           `json:"name"`
	Label           string           `json:"label,omitempty"`
	Fields          []Field          `json:"fields"`
	ValidationRules []ValidationRule `json:"validationRules,omitempty"`
}

// FieldByName returns the field with the given API name, or nil.
// Lookup is case-insensitive, matching formula-language semantics.
func (s *ObjectSchema) FieldByName(name string) *Field {
	for i := range s.Fields {
		if strings.EqualFold(s.Fields[i].Name, name) {
			return &s.Fields[i]
		}
	}
	return nil
}

// ActiveRules returns the rules with the active flag set.
func (s *ObjectSchema) ActiveRules() []ValidationRule {
	var out []ValidationRule
	for _, r := range s.ValidationRules {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}

// Provider supplies object schemas. Implementations typically describe
// objects over the Salesforce REST API; tests use in-memory fakes.
type Provider interface {
	GetObjectSchema(ctx context.Context, name string) (*ObjectSchema, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, name string) (*ObjectSchema, error)

// GetObjectSchema calls f.
func (f ProviderFunc) GetObjectSchema(ctx context.Context, name string) (*ObjectSchema, error) {
	return f(ctx, name)
}

package domain

import (
	"fmt"
	"strings"

	"gorm.io/datatypes"
)

// FieldType enumerates the value kinds a category field definition may take.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
)

// FieldDefinition describes one entry of a category's extra-data schema.
type FieldDefinition struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
}

// Category groups items and defines the shape of their extra data.
type Category struct {
	ID          uint                                  `gorm:"primaryKey" json:"id"`
	Name        string                                `gorm:"uniqueIndex;not null" json:"name"`
	Description string                                `json:"description,omitempty"`
	ColorCode   string                                `gorm:"default:#3B82F6" json:"color_code,omitempty"`
	Fields      datatypes.JSONType[[]FieldDefinition] `json:"fields"`
}

// ValidateFieldDefinitions checks a category schema: keys must be non-empty
// and unique, types known, and select fields need at least one option.
func ValidateFieldDefinitions(defs []FieldDefinition) error {
	seen := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		key := strings.TrimSpace(d.Key)
		if key == "" {
			return fmt.Errorf("field definition with empty key")
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate field key %q", key)
		}
		seen[key] = struct{}{}
		switch d.Type {
		case FieldText, FieldNumber, FieldDate, FieldCheckbox:
		case FieldSelect:
			if len(d.Options) == 0 {
				return fmt.Errorf("select field %q has no options", key)
			}
		default:
			return fmt.Errorf("field %q has unknown type %q", key, d.Type)
		}
	}
	return nil
}

// ValidateExtraData checks an item's extra data against its category schema.
// Every key must be declared, required fields must be present, and values
// must match the declared type.
func ValidateExtraData(defs []FieldDefinition, data map[string]any) error {
	byKey := make(map[string]FieldDefinition, len(defs))
	for _, d := range defs {
		byKey[d.Key] = d
	}
	for key := range data {
		if _, ok := byKey[key]; !ok {
			return fmt.Errorf("unknown extra field %q", key)
		}
	}
	for _, d := range defs {
		val, present := data[d.Key]
		if !present || val == nil {
			if d.Required {
				return fmt.Errorf("missing required field %q", d.Key)
			}
			continue
		}
		if err := checkFieldValue(d, val); err != nil {
			return err
		}
	}
	return nil
}

func checkFieldValue(d FieldDefinition, val any) error {
	switch d.Type {
	case FieldText:
		if _, ok := val.(string); !ok {
			return fmt.Errorf("field %q must be text", d.Key)
		}
	case FieldNumber:
		// JSON numbers decode as float64.
		if _, ok := val.(float64); !ok {
			return fmt.Errorf("field %q must be a number", d.Key)
		}
	case FieldDate:
		s, ok := val.(string)
		if !ok || !ValidDate(s) {
			return fmt.Errorf("field %q must be a date (%s)", d.Key, DateLayout)
		}
	case FieldSelect:
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("field %q must be one of its options", d.Key)
		}
		for _, opt := range d.Options {
			if s == opt {
				return nil
			}
		}
		return fmt.Errorf("field %q value %q is not an option", d.Key, s)
	case FieldCheckbox:
		if _, ok := val.(bool); !ok {
			return fmt.Errorf("field %q must be a boolean", d.Key)
		}
	}
	return nil
}

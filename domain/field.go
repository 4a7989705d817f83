package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// FieldType enumerates the value shapes a custom field may declare.
type FieldType string

const (
	FieldNumber   FieldType = "number"
	FieldSelect   FieldType = "select"
	FieldDate     FieldType = "date"
	FieldText     FieldType = "text"
	FieldCheckbox FieldType = "checkbox"
)

// KnownFieldType reports whether t is one of the defined field types.
func KnownFieldType(t FieldType) bool {
	switch t {
	case FieldNumber, FieldSelect, FieldDate, FieldText, FieldCheckbox:
		return true
	}
	return false
}

// FieldDefinition is a per-board, runtime-declared typed attribute that tasks
// may carry values for. Definitions are immutable as far as task writes are
// concerned, but are read on every create and update.
type FieldDefinition struct {
	ID       string      `json:"id"`
	BoardID  string      `json:"boardId"`
	Name     string      `json:"name"`
	Type     FieldType   `json:"type"`
	Config   FieldConfig `json:"config"`
	Required bool        `json:"required"`
}

// FieldConfig carries the type-specific constraints of a field definition.
// Only the fields relevant to the declared FieldType are ever set.
type FieldConfig struct {
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MinDate   string   `json:"min_date,omitempty"`
	MaxDate   string   `json:"max_date,omitempty"`
	Options   []string `json:"options,omitempty"`
	Multiple  bool     `json:"multiple,omitempty"`
	MaxLength *int     `json:"max_length,omitempty"`
}

// UnmarshalJSON decodes a config object. The "min"/"max" keys hold numbers for
// number fields and date strings for date fields; older boards stored date
// bounds under "min_date"/"max_date", which are still accepted.
func (c *FieldConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		Min       json.RawMessage `json:"min"`
		Max       json.RawMessage `json:"max"`
		MinDate   string          `json:"min_date"`
		MaxDate   string          `json:"max_date"`
		Options   []string        `json:"options"`
		Multiple  bool            `json:"multiple"`
		MaxLength *int            `json:"max_length"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = FieldConfig{Options: raw.Options, Multiple: raw.Multiple, MaxLength: raw.MaxLength}
	var err error
	if c.Min, c.MinDate, err = splitBound(raw.Min, raw.MinDate); err != nil {
		return fmt.Errorf("config min: %w", err)
	}
	if c.Max, c.MaxDate, err = splitBound(raw.Max, raw.MaxDate); err != nil {
		return fmt.Errorf("config max: %w", err)
	}
	return nil
}

func splitBound(raw json.RawMessage, legacy string) (*float64, string, error) {
	if len(raw) > 0 && string(raw) != "null" {
		var n float64
		if err := json.Unmarshal(raw, &n); err == nil {
			return &n, legacy, nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, "", fmt.Errorf("expected number or string, got %s", raw)
		}
		return nil, s, nil
	}
	return nil, legacy, nil
}

// FieldValue is the tagged union a raw custom-field value decodes into. Kind
// mirrors the declaring definition's type; exactly one payload field is
// meaningful for a given kind.
type FieldValue struct {
	Kind   FieldType
	Number float64
	Text   string
	Bool   bool
	List   []string
	Date   time.Time
}

// DecodeFieldValue checks the shape of a raw JSON-decoded value against the
// declared field type and builds the corresponding tagged value. Constraint
// checks (ranges, option membership, lengths) are the validator's concern.
func DecodeFieldValue(t FieldType, raw any) (FieldValue, error) {
	switch t {
	case FieldNumber:
		n, ok := numeric(raw)
		if !ok {
			return FieldValue{}, fmt.Errorf("expected a number, got %T", raw)
		}
		return FieldValue{Kind: t, Number: n}, nil
	case FieldSelect:
		switch v := raw.(type) {
		case string:
			return FieldValue{Kind: t, Text: v}, nil
		case []any:
			list := make([]string, 0, len(v))
			for _, el := range v {
				s, ok := el.(string)
				if !ok {
					return FieldValue{}, fmt.Errorf("expected an array of strings, got element of type %T", el)
				}
				list = append(list, s)
			}
			return FieldValue{Kind: t, List: list}, nil
		case []string:
			return FieldValue{Kind: t, List: v}, nil
		}
		return FieldValue{}, fmt.Errorf("expected a string or array of strings, got %T", raw)
	case FieldDate:
		s, ok := raw.(string)
		if !ok {
			return FieldValue{}, fmt.Errorf("expected a date string, got %T", raw)
		}
		d, err := ParseDate(s)
		if err != nil {
			return FieldValue{}, err
		}
		return FieldValue{Kind: t, Text: s, Date: d}, nil
	case FieldText:
		s, ok := raw.(string)
		if !ok {
			return FieldValue{}, fmt.Errorf("expected a string, got %T", raw)
		}
		return FieldValue{Kind: t, Text: s}, nil
	case FieldCheckbox:
		b, ok := raw.(bool)
		if !ok {
			return FieldValue{}, fmt.Errorf("expected a boolean, got %T", raw)
		}
		return FieldValue{Kind: t, Bool: b}, nil
	}
	return FieldValue{}, fmt.Errorf("unknown field type %q", t)
}

func numeric(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		n, err := v.Float64()
		return n, err == nil
	}
	return 0, false
}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

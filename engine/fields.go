package engine

import (
	"context"
	"fmt"
	"sort"
	"unicode/utf8"

	"kanban-api/domain"
)

// ValidateValue checks a raw custom-field value against a single definition:
// first the value's shape against the declared type, then the definition's
// constraints. An absent value passes; required-field enforcement happens at
// the board level, not here.
func ValidateValue(def domain.FieldDefinition, raw any) error {
	if raw == nil {
		return nil
	}
	val, err := domain.DecodeFieldValue(def.Type, raw)
	if err != nil {
		return err
	}
	switch val.Kind {
	case domain.FieldNumber:
		if def.Config.Min != nil && val.Number < *def.Config.Min {
			return fmt.Errorf("%v is below the minimum of %v", val.Number, *def.Config.Min)
		}
		if def.Config.Max != nil && val.Number > *def.Config.Max {
			return fmt.Errorf("%v exceeds the maximum of %v", val.Number, *def.Config.Max)
		}
	case domain.FieldSelect:
		if def.Config.Multiple {
			if val.List == nil {
				return fmt.Errorf("expected an array of options")
			}
			for _, opt := range val.List {
				if !knownOption(def.Config.Options, opt) {
					return fmt.Errorf("%q is not one of the configured options", opt)
				}
			}
		} else {
			if val.List != nil {
				return fmt.Errorf("expected a single option, got an array")
			}
			if !knownOption(def.Config.Options, val.Text) {
				return fmt.Errorf("%q is not one of the configured options", val.Text)
			}
		}
	case domain.FieldDate:
		if def.Config.MinDate != "" {
			min, err := domain.ParseDate(def.Config.MinDate)
			if err == nil && val.Date.Before(min) {
				return fmt.Errorf("%s is before the minimum date %s", val.Text, def.Config.MinDate)
			}
		}
		if def.Config.MaxDate != "" {
			max, err := domain.ParseDate(def.Config.MaxDate)
			if err == nil && val.Date.After(max) {
				return fmt.Errorf("%s is after the maximum date %s", val.Text, def.Config.MaxDate)
			}
		}
	case domain.FieldText:
		if def.Config.MaxLength != nil && utf8.RuneCountInString(val.Text) > *def.Config.MaxLength {
			return fmt.Errorf("text exceeds the maximum length of %d", *def.Config.MaxLength)
		}
	case domain.FieldCheckbox:
		// Shape check is the whole rule.
	}
	return nil
}

func knownOption(options []string, candidate string) bool {
	for _, opt := range options {
		if opt == candidate {
			return true
		}
	}
	return false
}

// FieldEngine validates a task's full custom-field value map against the
// definitions declared for its board.
type FieldEngine struct {
	defs FieldStore
}

// NewFieldEngine creates a FieldEngine reading definitions from defs.
func NewFieldEngine(defs FieldStore) *FieldEngine {
	return &FieldEngine{defs: defs}
}

// ValidateTaskFields checks values as the full intended final state of a
// task's custom fields: unknown keys are rejected, every required definition
// must carry a non-empty value, and each present value must satisfy its
// definition. On update, callers merge stored values with the patch before
// calling; a key merged away counts as absent.
func (e *FieldEngine) ValidateTaskFields(ctx context.Context, boardID string, values map[string]any) error {
	defs, err := e.defs.GetFieldsByBoardID(ctx, boardID)
	if err != nil {
		return &StorageError{Op: "load field definitions", Err: err}
	}
	byID := make(map[string]domain.FieldDefinition, len(defs))
	for _, def := range defs {
		byID[def.ID] = def
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, id := range keys {
		def, ok := byID[id]
		if !ok {
			return UnknownFieldError{FieldID: id}
		}
		value := values[id]
		if emptyValue(value) {
			if def.Required {
				return MissingRequiredFieldError{FieldID: def.ID, Name: def.Name}
			}
			continue
		}
		if err := ValidateValue(def, value); err != nil {
			return InvalidFieldValueError{FieldID: def.ID, Name: def.Name, Reason: err.Error()}
		}
	}

	for _, def := range defs {
		if !def.Required {
			continue
		}
		if _, present := values[def.ID]; !present {
			return MissingRequiredFieldError{FieldID: def.ID, Name: def.Name}
		}
	}
	return nil
}

func emptyValue(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// MergeFields overlays a partial custom-field patch onto the stored values,
// producing the full intended final state. An explicit null in the patch
// removes the key, so a required field can be unset only by failing
// validation.
func MergeFields(current, patch map[string]any) map[string]any {
	merged := make(map[string]any, len(current)+len(patch))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	return merged
}

package engine

import (
	"context"
	"errors"
	"testing"

	"kanban-api/domain"
)

type fakeFieldStore struct {
	defs []domain.FieldDefinition
	err  error
}

func (f *fakeFieldStore) GetFieldsByBoardID(ctx context.Context, boardID string) ([]domain.FieldDefinition, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.defs, nil
}

func floatPtr(n float64) *float64 { return &n }

func numberDef(min, max *float64) domain.FieldDefinition {
	return domain.FieldDefinition{
		ID: "estimate", BoardID: boardID, Name: "Estimate", Type: domain.FieldNumber,
		Config: domain.FieldConfig{Min: min, Max: max},
	}
}

func TestValidateValueNumber(t *testing.T) {
	def := numberDef(floatPtr(0), floatPtr(100))
	cases := []struct {
		name  string
		value any
		ok    bool
	}{
		{"in range", 50.0, true},
		{"at minimum", 0.0, true},
		{"at maximum", 100.0, true},
		{"below minimum", -1.0, false},
		{"above maximum", 150.0, false},
		{"integer literal", 42, true},
		{"not a number", "fifty", false},
		{"boolean", true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateValue(def, tc.value)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected an error for %v", tc.value)
			}
		})
	}
}

func TestValidateValueSelect(t *testing.T) {
	single := domain.FieldDefinition{
		ID: "status", Name: "Status", Type: domain.FieldSelect,
		Config: domain.FieldConfig{Options: []string{"red", "green", "blue"}},
	}
	multi := single
	multi.Config.Multiple = true

	cases := []struct {
		name  string
		def   domain.FieldDefinition
		value any
		ok    bool
	}{
		{"known option", single, "green", true},
		{"unknown option", single, "purple", false},
		{"array into single-select", single, []any{"green"}, false},
		{"array of known options", multi, []any{"red", "blue"}, true},
		{"array with unknown option", multi, []any{"red", "purple"}, false},
		{"scalar into multi-select", multi, "red", false},
		{"array with non-string element", multi, []any{"red", 3}, false},
		{"empty array", multi, []any{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateValue(tc.def, tc.value)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected an error for %v", tc.value)
			}
		})
	}
}

func TestValidateValueDate(t *testing.T) {
	def := domain.FieldDefinition{
		ID: "due", Name: "Due", Type: domain.FieldDate,
		Config: domain.FieldConfig{MinDate: "2026-01-01", MaxDate: "2026-12-31"},
	}
	cases := []struct {
		name  string
		value any
		ok    bool
	}{
		{"plain date in range", "2026-06-15", true},
		{"rfc3339 in range", "2026-06-15T10:30:00Z", true},
		{"before minimum", "2025-12-31", false},
		{"after maximum", "2027-01-01", false},
		{"unparseable", "next tuesday", false},
		{"wrong shape", 20260615, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateValue(def, tc.value)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected an error for %v", tc.value)
			}
		})
	}
}

func TestValidateValueText(t *testing.T) {
	limit := 5
	def := domain.FieldDefinition{
		ID: "note", Name: "Note", Type: domain.FieldText,
		Config: domain.FieldConfig{MaxLength: &limit},
	}
	if err := ValidateValue(def, "short"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateValue(def, "too long!"); err == nil {
		t.Fatal("expected a max length error")
	}
	// Length counts runes, not bytes.
	if err := ValidateValue(def, "héllo"); err != nil {
		t.Fatalf("multibyte text rejected: %v", err)
	}
	if err := ValidateValue(def, 12); err == nil {
		t.Fatal("expected a shape error for a number")
	}
}

func TestValidateValueCheckbox(t *testing.T) {
	def := domain.FieldDefinition{ID: "done", Name: "Done", Type: domain.FieldCheckbox}
	if err := ValidateValue(def, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateValue(def, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, bad := range []any{"true", 1, 0.0} {
		if err := ValidateValue(def, bad); err == nil {
			t.Fatalf("expected a shape error for %v (%T)", bad, bad)
		}
	}
}

func TestValidateValueNilPasses(t *testing.T) {
	def := numberDef(floatPtr(0), nil)
	def.Required = true
	if err := ValidateValue(def, nil); err != nil {
		t.Fatalf("nil value should pass per-field validation: %v", err)
	}
}

func TestValidateTaskFieldsUnknownKey(t *testing.T) {
	engine := NewFieldEngine(&fakeFieldStore{defs: []domain.FieldDefinition{numberDef(nil, nil)}})
	err := engine.ValidateTaskFields(context.Background(), boardID, map[string]any{"mystery": 1})
	var unknown UnknownFieldError
	if !errors.As(err, &unknown) || unknown.FieldID != "mystery" {
		t.Fatalf("expected UnknownFieldError for mystery, got %v", err)
	}
}

func TestValidateTaskFieldsRequired(t *testing.T) {
	points := numberDef(floatPtr(0), floatPtr(100))
	points.ID = "story-points"
	points.Name = "Story Points"
	points.Required = true
	engine := NewFieldEngine(&fakeFieldStore{defs: []domain.FieldDefinition{points}})
	ctx := context.Background()

	cases := []struct {
		name    string
		values  map[string]any
		missing bool
		invalid bool
	}{
		{"valid value", map[string]any{"story-points": 50.0}, false, false},
		{"absent", map[string]any{}, true, false},
		{"explicit nil", map[string]any{"story-points": nil}, true, false},
		{"empty string", map[string]any{"story-points": ""}, true, false},
		{"out of range", map[string]any{"story-points": 150.0}, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := engine.ValidateTaskFields(ctx, boardID, tc.values)
			switch {
			case tc.missing:
				var missing MissingRequiredFieldError
				if !errors.As(err, &missing) || missing.Name != "Story Points" {
					t.Fatalf("expected MissingRequiredFieldError, got %v", err)
				}
			case tc.invalid:
				var invalid InvalidFieldValueError
				if !errors.As(err, &invalid) || invalid.FieldID != "story-points" {
					t.Fatalf("expected InvalidFieldValueError, got %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestValidateTaskFieldsOptionalEmptySkipped(t *testing.T) {
	def := numberDef(floatPtr(10), nil)
	engine := NewFieldEngine(&fakeFieldStore{defs: []domain.FieldDefinition{def}})
	err := engine.ValidateTaskFields(context.Background(), boardID, map[string]any{"estimate": nil})
	if err != nil {
		t.Fatalf("empty optional value should be skipped: %v", err)
	}
}

func TestValidateTaskFieldsStoreFailure(t *testing.T) {
	engine := NewFieldEngine(&fakeFieldStore{err: errors.New("table offline")})
	err := engine.ValidateTaskFields(context.Background(), boardID, map[string]any{"estimate": 1})
	var storage *StorageError
	if !errors.As(err, &storage) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}

func TestMergeFields(t *testing.T) {
	current := map[string]any{"a": 1.0, "b": "keep", "c": true}
	patch := map[string]any{"a": 2.0, "c": nil, "d": "new"}

	merged := MergeFields(current, patch)

	if merged["a"] != 2.0 {
		t.Fatalf("patched value not applied: %v", merged["a"])
	}
	if merged["b"] != "keep" {
		t.Fatalf("untouched value lost: %v", merged["b"])
	}
	if _, present := merged["c"]; present {
		t.Fatal("explicit null did not remove the key")
	}
	if merged["d"] != "new" {
		t.Fatalf("new key not added: %v", merged["d"])
	}
	if current["a"] != 1.0 || len(current) != 3 {
		t.Fatal("merge mutated the stored map")
	}
}

func TestMergeFieldsNilInputs(t *testing.T) {
	if got := MergeFields(nil, map[string]any{"a": 1}); got["a"] != 1 {
		t.Fatalf("merge over nil current: %v", got)
	}
	if got := MergeFields(map[string]any{"a": 1}, nil); got["a"] != 1 {
		t.Fatalf("merge of nil patch: %v", got)
	}
}

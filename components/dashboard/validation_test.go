package dashboard

import (
	"errors"
	"testing"
)

func TestJSONSchemaValidatorFilterUpdate(t *testing.T) {
	validator := NewJSONSchemaValidator()
	valid := map[string]any{
		"channel":      "yandex",
		"period":       "custom",
		"start_date":   "2024-06-01",
		"end_date":     "2024-06-10",
		"campaign_ids": []string{"c-1"},
	}
	if err := validator.Validate(SchemaFilterUpdate, valid); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
	err := validator.Validate(SchemaFilterUpdate, map[string]any{"period": "21"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown period, got %v", err)
	}
	if err := validator.Validate(SchemaFilterUpdate, map[string]any{"start_date": "2024-06-01"}); err == nil {
		t.Fatalf("expected start_date without end_date to be rejected")
	}
	if err := validator.Validate(SchemaFilterUpdate, map[string]any{"project_id": "not-a-uuid"}); err == nil {
		t.Fatalf("expected malformed project id to be rejected")
	}
}

func TestJSONSchemaValidatorIntegrationCommit(t *testing.T) {
	validator := NewJSONSchemaValidator()
	payload := map[string]any{
		"selected_campaign_ids": []string{"c-1"},
		"all_campaigns":         false,
		"selected_counters":     []int64{100},
		"primary_goal_id":       2,
		"selected_goals":        []int64{1, 2},
		"is_active":             true,
	}
	if err := validator.Validate(SchemaIntegrationCommit, payload); err != nil {
		t.Fatalf("expected valid commit, got %v", err)
	}
	payload["is_active"] = false
	if err := validator.Validate(SchemaIntegrationCommit, payload); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected inactive commit to be rejected, got %v", err)
	}
}

func TestJSONSchemaValidatorCachesCompiledSchemas(t *testing.T) {
	validator := NewJSONSchemaValidator()
	validator.Register("demo", map[string]any{"type": "object"})
	if err := validator.Validate("demo", map[string]any{}); err != nil {
		t.Fatalf("unexpected error validating payload: %v", err)
	}
	if _, ok := validator.compiled["demo"]; !ok {
		t.Fatalf("expected compiled schema to be cached")
	}
	validator.Register("demo", map[string]any{"type": "array"})
	if _, ok := validator.compiled["demo"]; ok {
		t.Fatalf("expected re-registration to drop the cached schema")
	}
	if err := validator.Validate("missing", nil); err == nil {
		t.Fatalf("expected unknown schema error")
	}
}

package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Built-in payload schemas.
const (
	SchemaFilterUpdate      = "filters.update"
	SchemaIntegrationCommit = "integration.commit"
)

// PayloadValidator validates inbound payloads against a named schema.
type PayloadValidator interface {
	Validate(schema string, payload any) error
}

// JSONSchemaValidator compiles registered schemas lazily and caches them.
type JSONSchemaValidator struct {
	mu       sync.RWMutex
	schemas  map[string]map[string]any
	compiled map[string]*jsonschema.Schema
}

// NewJSONSchemaValidator builds a validator with the built-in schemas registered.
func NewJSONSchemaValidator() *JSONSchemaValidator {
	v := &JSONSchemaValidator{
		schemas:  make(map[string]map[string]any),
		compiled: make(map[string]*jsonschema.Schema),
	}
	v.Register(SchemaFilterUpdate, filterUpdateSchema)
	v.Register(SchemaIntegrationCommit, integrationCommitSchema)
	return v
}

// Register adds or replaces a schema.
func (v *JSONSchemaValidator) Register(name string, schema map[string]any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.schemas[name] = schema
	delete(v.compiled, name)
}

// Validate checks payload against the named schema. Failures wrap ErrValidation.
func (v *JSONSchemaValidator) Validate(name string, payload any) error {
	schema, err := v.schemaFor(name)
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("dashboard: marshal payload for %s: %w", name, err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("dashboard: normalize payload for %s: %w", name, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrValidation, name, err)
	}
	return nil
}

func (v *JSONSchemaValidator) schemaFor(name string) (*jsonschema.Schema, error) {
	v.mu.RLock()
	schema, ok := v.compiled[name]
	raw, known := v.schemas[name]
	v.mu.RUnlock()
	if ok {
		return schema, nil
	}
	if !known {
		return nil, fmt.Errorf("dashboard: unknown schema %s", name)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("dashboard: marshal schema %s: %w", name, err)
	}
	compiler := jsonschema.NewCompiler()
	resource := name + ".json"
	if err := compiler.AddResource(resource, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("dashboard: load schema %s: %w", name, err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("dashboard: compile schema %s: %w", name, err)
	}
	v.mu.Lock()
	v.compiled[name] = compiled
	v.mu.Unlock()
	return compiled, nil
}

const (
	datePattern = `^\d{4}-\d{2}-\d{2}$`
	uuidPattern = `^([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})?$`
)

var filterUpdateSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"channel":    map[string]any{"type": "string", "minLength": 1},
		"period":     map[string]any{"enum": []string{"7", "14", "30", "90", "custom"}},
		"start_date": map[string]any{"type": "string", "pattern": datePattern},
		"end_date":   map[string]any{"type": "string", "pattern": datePattern},
		"project_id": map[string]any{"type": "string", "pattern": uuidPattern},
		"campaign_ids": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string", "minLength": 1},
		},
	},
	"dependentRequired": map[string]any{
		"start_date": []string{"end_date"},
		"end_date":   []string{"start_date"},
	},
}

var integrationCommitSchema = map[string]any{
	"type": "object",
	"required": []string{
		"selected_campaign_ids",
		"all_campaigns",
		"selected_counters",
		"primary_goal_id",
		"selected_goals",
		"is_active",
	},
	"properties": map[string]any{
		"selected_campaign_ids": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string", "minLength": 1},
		},
		"all_campaigns":     map[string]any{"type": "boolean"},
		"selected_counters": map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
		"primary_goal_id":   map[string]any{"type": []string{"integer", "null"}},
		"selected_goals":    map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
		"is_active":         map[string]any{"const": true},
	},
}

type noopPayloadValidator struct{}

func (noopPayloadValidator) Validate(string, any) error { return nil }

// NormalizeValidator returns a no-op validator for nil.
func NormalizeValidator(v PayloadValidator) PayloadValidator {
	if v == nil {
		return noopPayloadValidator{}
	}
	return v
}

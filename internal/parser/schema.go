package parser

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildProblemJSONSchema returns the JSON-Schema (draft 2020-12 subset) for
// the structured problem shape, as a generic map. We send it to the LLM as
// an output constraint and also use it locally to validate the response.
// problem_type is deliberately an open string: unknown types are rejected by
// code against the registered set, which gives a named-field error and keeps
// the schema stable as types are added.
func BuildProblemJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"problem_type": map[string]any{"type": "string", "minLength": 1},
			"statement":    map[string]any{"type": "string", "minLength": 1},
			"requested_operations": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string", "minLength": 1},
				"minItems": 1,
			},
			"variables": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string", "minLength": 1},
			},
			"options": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"bounds": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"lower": map[string]any{"type": "string"},
					"upper": map[string]any{"type": "string"},
				},
				"required": []string{"lower", "upper"},
			},
		},
		"required": []string{"problem_type", "statement", "requested_operations"},
	}
}

// ValidateJSONAgainstSchema validates data against schemaMap.
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

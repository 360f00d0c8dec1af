package providers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/copyforge/copyforge/internal/extract"
)

// parseStructuredJSON parses JSON from model output, recovering from code
// fences and surrounding prose. The result is re-encoded compactly.
func parseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty structured output")
	}

	candidates := []string{content, extract.StripFences(content)}
	if frag, ok := extract.BalancedFragment(content); ok {
		candidates = append(candidates, frag)
	}
	for _, candidate := range candidates {
		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
			continue
		}
		normalized, err := json.Marshal(parsed)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize structured output: %w", err)
		}
		return normalized, nil
	}
	return nil, fmt.Errorf("failed to parse structured JSON")
}

// validateStructuredJSON validates parsed JSON against a schema. The schema may
// be bare or wrapped in the OpenAI {"name","schema"} envelope.
func validateStructuredJSON(schemaRaw, parsed json.RawMessage) error {
	if len(schemaRaw) == 0 || len(parsed) == 0 {
		return nil
	}

	coreSchema, err := unwrapSchema(schemaRaw)
	if err != nil {
		return err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("response.json", bytes.NewReader(coreSchema)); err != nil {
		return fmt.Errorf("failed to load structured schema: %w", err)
	}
	schema, err := compiler.Compile("response.json")
	if err != nil {
		return fmt.Errorf("failed to compile structured schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(parsed, &doc); err != nil {
		return fmt.Errorf("failed to decode structured JSON for validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("structured output does not match schema: %w", err)
	}
	return nil
}

// schemaEnvelope wraps a bare schema in the {"name","schema"} envelope that
// OpenAI-style json_schema response formats expect.
func schemaEnvelope(schema json.RawMessage) json.RawMessage {
	out, _ := json.Marshal(struct {
		Name   string          `json:"name"`
		Schema json.RawMessage `json:"schema"`
	}{"copy_record", schema})
	return out
}

// decodeSchema returns the envelope name, defaulting to "response", and the core
// schema decoded for SDKs that take it as a value.
func decodeSchema(schemaRaw json.RawMessage) (string, map[string]any, error) {
	var env struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(schemaRaw, &env)
	if env.Name == "" {
		env.Name = "response"
	}
	core, err := unwrapSchema(schemaRaw)
	if err != nil {
		return "", nil, err
	}
	var schema map[string]any
	if err := json.Unmarshal(core, &schema); err != nil {
		return "", nil, fmt.Errorf("invalid structured schema JSON: %w", err)
	}
	return env.Name, schema, nil
}

func unwrapSchema(schemaRaw json.RawMessage) (json.RawMessage, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(schemaRaw, &root); err != nil {
		return nil, fmt.Errorf("invalid structured schema JSON: %w", err)
	}
	if inner, ok := root["schema"]; ok {
		return inner, nil
	}
	return schemaRaw, nil
}

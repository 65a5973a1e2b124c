package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema describes the structured-output contract for a call. It converts
// to the backend's native schema format for generation and to JSON Schema
// for response validation.
type Schema struct {
	Required   []string            `json:"required"`
	Properties map[string]Property `json:"properties"`
}

// Property is one field of an output schema.
type Property struct {
	Type        string    `json:"type"` // string, number, integer, boolean, array, object
	Description string    `json:"description,omitempty"`
	Items       *Property `json:"items,omitempty"`
}

// DefaultSchema is the structured-output contract used by code-generating
// agents: a textual response, the Python payload, and its imports.
func DefaultSchema() *Schema {
	return &Schema{
		Required: []string{"response", "python", "imports"},
		Properties: map[string]Property{
			"response": {
				Type:        "string",
				Description: "The agent's response to the given task",
			},
			"explanation": {
				Type:        "string",
				Description: "Explanation of the generated solution",
			},
			"python": {
				Type:        "string",
				Description: "Python code implementing the task, empty if none",
			},
			"imports": {
				Type:        "array",
				Items:       &Property{Type: "string"},
				Description: "Packages the generated code needs installed",
			},
		},
	}
}

// jsonSchemaDocument renders the schema as a JSON Schema object document.
func (s *Schema) jsonSchemaDocument() map[string]interface{} {
	properties := make(map[string]interface{}, len(s.Properties))
	for name, prop := range s.Properties {
		properties[name] = prop.jsonSchema()
	}

	doc := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(s.Required) > 0 {
		doc["required"] = s.Required
	}
	return doc
}

func (p Property) jsonSchema() map[string]interface{} {
	doc := map[string]interface{}{"type": p.Type}
	if p.Items != nil {
		doc["items"] = p.Items.jsonSchema()
	}
	return doc
}

// ValidatePayload parses raw provider output as JSON and checks it against
// the schema. Returns the parsed object, or a KindMalformed *CallError when
// the payload does not satisfy the contract.
func (s *Schema) ValidatePayload(raw string) (map[string]interface{}, error) {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, WrapCallError(KindMalformed, err, "response is not valid JSON")
	}

	schemaLoader := gojsonschema.NewGoLoader(s.jsonSchemaDocument())
	documentLoader := gojsonschema.NewStringLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, WrapCallError(KindMalformed, err, "schema validation failed")
	}

	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			violations = append(violations, desc.String())
		}
		return nil, NewCallError(KindMalformed,
			fmt.Sprintf("response violates output schema: %s", strings.Join(violations, "; ")))
	}

	return parsed, nil
}

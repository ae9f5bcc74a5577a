package validation

import (
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/docuphase/rungraph/pkg/schema"
)

// definitionSchemaJSON is the JSON Schema for definition documents.
// It accepts both generations: a bare node array (v1) or the versioned
// object form (v2). Embedded as a constant to avoid filesystem dependencies.
const definitionSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://rungraph.dev/schemas/definition.json",
  "oneOf": [
    { "$ref": "#/$defs/nodeList" },
    { "$ref": "#/$defs/definition" }
  ],
  "$defs": {
    "nodeList": {
      "type": "array",
      "items": { "$ref": "#/$defs/node" }
    },
    "definition": {
      "type": "object",
      "required": ["nodes"],
      "properties": {
        "schema_version": { "type": "integer", "enum": [1, 2] },
        "nodes": { "$ref": "#/$defs/nodeList" },
        "edges": {
          "type": "array",
          "items": { "$ref": "#/$defs/edge" }
        },
        "metadata": { "type": "object" }
      },
      "additionalProperties": false
    },
    "node": {
      "type": "object",
      "properties": {
        "id": { "type": "string" },
        "type": { "type": "string" },
        "title": { "type": "string" },
        "name": { "type": "string" },
        "output": { "type": "string" },
        "assignee": { "$ref": "#/$defs/assignee" },
        "config": {}
      },
      "additionalProperties": false
    },
    "edge": {
      "type": "object",
      "required": ["from", "to"],
      "properties": {
        "id": { "type": "string" },
        "from": { "type": "string", "minLength": 1 },
        "to": { "type": "string", "minLength": 1 }
      },
      "additionalProperties": false
    },
    "assignee": {
      "type": "object",
      "properties": {
        "kind": { "type": "string", "enum": ["user", "role", "group"] },
        "id": { "type": "string" },
        "name": { "type": "string" }
      },
      "additionalProperties": false
    }
  }
}`

// DocumentValidator validates raw definition documents against the JSON
// Schema above. Safe for concurrent use. The graph builder never requires a
// valid document; this is an advisory pre-flight for ops tooling.
type DocumentValidator struct {
	definitionSchema *jsonschema.Schema
}

// NewDocumentValidator compiles the embedded definition schema.
func NewDocumentValidator() (*DocumentValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(definitionSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal definition schema: %w", err)
	}
	if err := c.AddResource("https://rungraph.dev/schemas/definition.json", doc); err != nil {
		return nil, fmt.Errorf("add definition schema resource: %w", err)
	}

	compiled, err := c.Compile("https://rungraph.dev/schemas/definition.json")
	if err != nil {
		return nil, fmt.Errorf("compile definition schema: %w", err)
	}

	return &DocumentValidator{definitionSchema: compiled}, nil
}

// ValidateDocument checks a raw definition document. Structural violations
// are reported as errors; semantic oddities the normalizer tolerates are
// layered on as warnings by ValidateDefinition.
func (v *DocumentValidator) ValidateDocument(raw []byte) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		result.AddError("/", schema.ErrCodeValidation, "document is not valid JSON")
		return result
	}

	if err := v.definitionSchema.Validate(doc); err != nil {
		for _, violation := range collectViolations(err) {
			result.AddError(violation.path, schema.ErrCodeValidation, violation.message)
		}
	}

	// Semantic pass over whatever the normalizer can extract.
	result.Merge(ValidateDefinition(schema.NormalizeDocument(raw)))
	return result
}

type violation struct {
	path    string
	message string
}

// collectViolations walks a ValidationError tree and collects leaf messages
// with their instance locations.
func collectViolations(err error) []violation {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []violation{{path: "/", message: err.Error()}}
	}

	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []violation{{path: loc, message: verr.Error()}}
	}

	var out []violation
	for _, cause := range verr.Causes {
		out = append(out, collectViolations(cause)...)
	}
	return out
}

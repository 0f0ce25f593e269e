package generator

import (
	"fmt"
	"strings"

	"peakform/coaching-app/internal/domain"

	"github.com/kaptinlin/jsonschema"
)

// Raw generator output is validated against these schemas before anything is
// stored; a mismatch fails the generation attempt instead of persisting an
// unvalidated structure.

const trainingPlanSchema = `{
	"type": "object",
	"required": ["title", "summary", "weeks"],
	"properties": {
		"title":   {"type": "string", "minLength": 1},
		"summary": {"type": "string"},
		"weeks": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["number", "sessions"],
				"properties": {
					"number": {"type": "integer", "minimum": 1},
					"focus":  {"type": "string"},
					"sessions": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["day", "title"],
							"properties": {
								"day":             {"type": "string"},
								"title":           {"type": "string", "minLength": 1},
								"description":     {"type": "string"},
								"durationMinutes": {"type": "integer", "minimum": 0},
								"intensity":       {"type": "string", "enum": ["easy", "moderate", "hard"]}
							}
						}
					}
				}
			}
		}
	}
}`

const sessionSummarySchema = `{
	"type": "object",
	"required": ["headline", "summary"],
	"properties": {
		"headline":   {"type": "string", "minLength": 1},
		"summary":    {"type": "string", "minLength": 1},
		"highlights": {"type": "array", "items": {"type": "string"}},
		"coachNotes": {"type": "string"}
	}
}`

// compileSchemas builds the kind -> schema table once, at client
// construction.
func compileSchemas() (map[domain.EntityKind]*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	schemas := make(map[domain.EntityKind]*jsonschema.Schema, 2)
	for kind, raw := range map[domain.EntityKind]string{
		domain.KindTrainingPlan: trainingPlanSchema,
		domain.KindSessionLog:   sessionSummarySchema,
	} {
		schema, err := compiler.Compile([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s document schema: %w", kind, err)
		}
		schemas[kind] = schema
	}
	return schemas, nil
}

// validate checks decoded generator output against the schema for kind and
// collects every violation into one error.
func validate(schema *jsonschema.Schema, decoded map[string]interface{}) error {
	result := schema.Validate(decoded)
	if result.IsValid() {
		return nil
	}
	var messages []string
	for field, evalErr := range result.Errors {
		messages = append(messages, fmt.Sprintf("%s: %s", field, evalErr.Error()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidOutput, strings.Join(messages, "; "))
}

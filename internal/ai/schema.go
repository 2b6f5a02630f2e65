package ai

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// analysisSchemaJSON constrains the four analysis fields when present.
// Nothing is required: the model routinely omits fields, and absence is
// handled by per-field defaults, not validation failure. A present field
// with the wrong shape fails validation and routes to the raw fallback.
const analysisSchemaJSON = `{
  "type": "object",
  "properties": {
    "summary":         {"type": "string"},
    "abnormalities":   {"type": "array", "items": {"type": "string"}},
    "recommendations": {"type": "array", "items": {"type": "string"}},
    "plainEnglish":    {"type": "string"}
  }
}`

var analysisSchema = jsonschema.MustCompileString("analysis.json", analysisSchemaJSON)

// ValidateAnalysisJSON checks a raw JSON document against the analysis
// schema. Returns the decoded document for field extraction.
func ValidateAnalysisJSON(raw []byte) (map[string]any, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("not a JSON object")
	}
	if err := analysisSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return obj, nil
}

package capability

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateSchema reports whether raw is a structurally valid
// JSON Schema document. A schema that fails validation is still indexed for
// BM25 retrieval (SchemaValid=false marks it) so a tool description typo
// doesn't make the tool undiscoverable, but callers should prefer
// schema-valid tools when binding.
func ValidateSchema(raw map[string]any) bool {
	if raw == nil {
		return false
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return false
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("candidate.json", bytes.NewReader(encoded)); err != nil {
		return false
	}
	_, err = compiler.Compile("candidate.json")
	return err == nil
}

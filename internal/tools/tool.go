package tools

import (
	"encoding/json"
	"strings"

	"github.com/tmc/langchaingo/llms"
	lctools "github.com/tmc/langchaingo/tools"
)

// Tool is a callable exposed to the model. It extends langchaingo's tool
// contract with the function-calling schema sent alongside the chat request.
type Tool interface {
	lctools.Tool

	// Definition returns the schema advertised to the model.
	Definition() llms.FunctionDefinition
}

// stringArg extracts a string field from a JSON arguments object. When the
// input is not a JSON object, the raw input is returned as-is: some models
// pass a bare string instead of the declared schema.
func stringArg(input, key string) string {
	var args map[string]any
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return strings.TrimSpace(strings.Trim(strings.TrimSpace(input), `"`))
	}
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// stringParams builds a JSON schema for an object of required string
// properties.
func stringParams(props map[string]string, required ...string) map[string]any {
	properties := make(map[string]any, len(props))
	for name, desc := range props {
		properties[name] = map[string]any{"type": "string", "description": desc}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

package tools

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"

	ijson "github.com/richinex/anko/internal/json"
)

// Input is the argument object every tool takes: one free-text string.
type Input struct {
	Input string `json:"input" jsonschema:"description=The topic or description the tool should act on"`
}

var inputSchema = sync.OnceValue(func() map[string]any {
	reflector := jsonschema.Reflector{DoNotReference: true}
	raw, err := json.Marshal(reflector.Reflect(&Input{}))
	if err != nil {
		panic(fmt.Sprintf("tools: reflect input schema: %v", err))
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		panic(fmt.Sprintf("tools: decode input schema: %v", err))
	}
	delete(schema, "$schema")
	delete(schema, "$id")
	return schema
})

// InputSchema returns the JSON schema of Input as a fresh map.
func InputSchema() map[string]any {
	src := inputSchema()
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// ParseInput extracts the input string from model-supplied arguments.
// Accepted shapes: {"input": "..."}, a bare JSON string, or either of those
// wrapped in surrounding text or a markdown fence.
func ParseInput(args json.RawMessage) (string, error) {
	raw := strings.TrimSpace(string(args))
	if raw == "" {
		return "", fmt.Errorf("empty tool arguments")
	}

	var s string
	if err := json.Unmarshal([]byte(raw), &s); err == nil {
		return s, nil
	}

	in, err := ijson.Decode[map[string]json.RawMessage](raw)
	if err != nil {
		return "", fmt.Errorf("invalid tool arguments: %w", err)
	}
	value, ok := in["input"]
	if !ok {
		return "", fmt.Errorf("invalid tool arguments: missing \"input\"")
	}
	if err := json.Unmarshal(value, &s); err != nil {
		return "", fmt.Errorf("invalid tool arguments: \"input\" must be a string")
	}
	return s, nil
}

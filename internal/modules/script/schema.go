package script

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaName = "video_script"

func sectionSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"heading", "narration", "duration_seconds", "visuals", "broll"},
		"properties": map[string]any{
			"heading":          map[string]any{"type": "string"},
			"narration":        map[string]any{"type": "string"},
			"duration_seconds": map[string]any{"type": "number"},
			"visuals":          map[string]any{"type": "string"},
			"broll":            map[string]any{"type": "string"},
		},
	}
}

// requestSchema is sent to the model. Strict mode wants every property
// required, so optional directions come back as empty strings.
func requestSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"title", "hook", "sections", "cta"},
		"properties": map[string]any{
			"title":    map[string]any{"type": "string"},
			"hook":     map[string]any{"type": "string"},
			"sections": map[string]any{"type": "array", "items": sectionSchema()},
			"cta":      map[string]any{"type": "string"},
		},
	}
}

// responseSchema is the stricter local check applied before the script is
// handed to the storyboard composer.
func responseSchema() map[string]any {
	sec := sectionSchema()
	sec["required"] = []any{"heading", "narration", "duration_seconds"}
	props := sec["properties"].(map[string]any)
	props["heading"] = map[string]any{"type": "string", "minLength": 1}
	props["narration"] = map[string]any{"type": "string", "minLength": 1}
	return map[string]any{
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": []any{"title", "hook", "sections", "cta"},
		"properties": map[string]any{
			"title":    map[string]any{"type": "string", "minLength": 1},
			"hook":     map[string]any{"type": "string", "minLength": 1},
			"sections": map[string]any{"type": "array", "items": sec},
			"cta":      map[string]any{"type": "string"},
		},
	}
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func compiledResponseSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		b, err := json.Marshal(responseSchema())
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("script.json", bytes.NewReader(b)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile("script.json")
	})
	return compiled, compileErr
}

// validateScriptJSON checks a decoded model response against the local schema.
func validateScriptJSON(obj map[string]any) error {
	schema, err := compiledResponseSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	// Round-trip so numbers are float64 the way the validator expects.
	b, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// Copyright 2026 The Guidrive Authors
//
// Helper functions for tool handlers

package server

import (
	"encoding/json"
	"fmt"
)

// maxDisplayTextLen is the maximum length for script excerpts shown in
// acknowledgement messages. Longer text is truncated with "..." suffix.
const maxDisplayTextLen = 50

// truncateText truncates text to maxDisplayTextLen characters.
func truncateText(s string) string {
	if len(s) > maxDisplayTextLen {
		return s[:maxDisplayTextLen] + "..."
	}
	return s
}

// errorResult creates a ToolResult with IsError=true and the given message.
func errorResult(msg string) *ToolResult {
	return &ToolResult{
		IsError: true,
		Content: []Content{{Type: "text", Text: msg}},
	}
}

// errorResultf is the sprintf version of errorResult.
func errorResultf(format string, args ...any) *ToolResult {
	return errorResult(fmt.Sprintf(format, args...))
}

// textResult creates a ToolResult with a single text content.
func textResult(text string) *ToolResult {
	return &ToolResult{
		Content: []Content{{Type: "text", Text: text}},
	}
}

// textResultf is the sprintf version of textResult.
func textResultf(format string, args ...any) *ToolResult {
	return textResult(fmt.Sprintf(format, args...))
}

// validateToolInput checks the raw arguments against the tool's input
// schema: required fields must be present and provided fields must match
// the declared JSON type. Extra properties are allowed. Returns "" when
// valid, otherwise a message suitable for an invalid-params error.
func validateToolInput(tool *Tool, raw json.RawMessage) string {
	schema := tool.InputSchema
	if schema == nil {
		return ""
	}

	args := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return fmt.Sprintf("arguments must be a JSON object: %v", err)
		}
	}

	for _, field := range requiredFields(schema) {
		if _, ok := args[field]; !ok {
			return fmt.Sprintf("missing required field: %s", field)
		}
	}

	props := schemaProperties(schema)
	for name, value := range args {
		prop, ok := props[name]
		if !ok || value == nil {
			continue
		}
		wantType, _ := prop["type"].(string)
		if wantType == "" {
			continue
		}
		if msg := checkType(name, value, wantType); msg != "" {
			return msg
		}
	}
	return ""
}

// requiredFields extracts the schema's "required" list, tolerating both the
// []string form used at registration time and the []any form produced by
// JSON unmarshaling.
func requiredFields(schema map[string]any) []string {
	switch required := schema["required"].(type) {
	case []string:
		return required
	case []any:
		out := make([]string, 0, len(required))
		for _, v := range required {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// schemaProperties extracts the schema's "properties" map.
func schemaProperties(schema map[string]any) map[string]map[string]any {
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]map[string]any, len(props))
	for k, v := range props {
		if prop, ok := v.(map[string]any); ok {
			out[k] = prop
		}
	}
	return out
}

// checkType validates one value against a JSON Schema primitive type.
func checkType(field string, value any, wantType string) string {
	ok := true
	switch wantType {
	case "string":
		_, ok = value.(string)
	case "boolean":
		_, ok = value.(bool)
	case "number":
		ok = isNumber(value)
	case "integer":
		ok = isInteger(value)
	case "array":
		_, ok = value.([]any)
	case "object":
		_, ok = value.(map[string]any)
	}
	if !ok {
		return fmt.Sprintf("field %q must be a %s, got %T", field, wantType, value)
	}
	return ""
}

func isNumber(value any) bool {
	switch value.(type) {
	case float64, float32, int, int32, int64:
		return true
	default:
		return false
	}
}

// isInteger accepts whole numbers; JSON unmarshaling produces float64 for
// every number, so whole float64s count.
func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int32, int64:
		return true
	case float64:
		return v == float64(int64(v))
	default:
		return false
	}
}

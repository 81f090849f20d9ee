package tools

import "strings"

// allowedSchemaKeys is the set of JSON-Schema keywords Gemini's function
// declaration format accepts.
var allowedSchemaKeys = map[string]bool{
	"type":        true,
	"properties":  true,
	"required":    true,
	"description": true,
	"enum":        true,
	"items":       true,
	"minimum":     true,
	"maximum":     true,
	"minLength":   true,
	"maxLength":   true,
	"pattern":     true,
	"format":      true,
	"default":     true,
}

// SanitizeGeminiSchema cleans a JSON-Schema parameter object for
// submission as a Gemini function declaration. It keeps whitelisted
// keywords, strips every case and underscore variant of
// additionalProperties/additionalItems at any depth, and preserves
// non-whitelisted keys only when their value is itself a schema object
// (a map with a "type" key). The result always carries "type" and
// "properties". Idempotent.
func SanitizeGeminiSchema(schema map[string]interface{}) map[string]interface{} {
	out := sanitizeSchemaMap(schema)
	if _, ok := out["type"]; !ok {
		out["type"] = "object"
	}
	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]interface{}{}
	}
	return out
}

func sanitizeSchemaMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		norm := strings.ReplaceAll(strings.ToLower(k), "_", "")
		if norm == "additionalproperties" || norm == "additionalitems" {
			continue
		}
		if allowedSchemaKeys[k] {
			out[k] = sanitizeSchemaValue(v)
			continue
		}
		// Keep unknown keys only when they look like nested property
		// definitions, so property maps survive the filter.
		if sub, ok := v.(map[string]interface{}); ok {
			if _, hasType := sub["type"]; hasType {
				out[k] = sanitizeSchemaMap(sub)
			}
		}
	}
	return out
}

func sanitizeSchemaValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return sanitizeSchemaMap(t)
	case []interface{}:
		cleaned := make([]interface{}, len(t))
		for i, elem := range t {
			cleaned[i] = sanitizeSchemaValue(elem)
		}
		return cleaned
	default:
		return v
	}
}

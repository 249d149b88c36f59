package tools

import (
	"encoding/json"

	"github.com/verdantlabs/arbor/core"
)

// arguments is the defensively parsed tool-call argument object
type arguments map[string]interface{}

// parseArguments decodes the raw JSON argument string. Malformed input
// degrades to an empty object so the handler still runs with defaults.
func parseArguments(raw string, name string, logger core.Logger) arguments {
	if raw == "" {
		return arguments{}
	}
	var args arguments
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		logger.Warn("Malformed tool arguments, proceeding with defaults", map[string]interface{}{
			"operation": "tool_dispatch",
			"tool":      name,
			"error":     err.Error(),
		})
		return arguments{}
	}
	return args
}

func (a arguments) has(key string) bool {
	_, ok := a[key]
	return ok
}

func (a arguments) str(key string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}

func (a arguments) strPtr(key string) *string {
	if v, ok := a[key].(string); ok {
		return &v
	}
	return nil
}

func (a arguments) float(key string) (float64, bool) {
	v, ok := a[key].(float64)
	return v, ok
}

func (a arguments) floatPtr(key string) *float64 {
	if v, ok := a[key].(float64); ok {
		return &v
	}
	return nil
}

func (a arguments) intVal(key string, fallback int) int {
	if v, ok := a[key].(float64); ok {
		return int(v)
	}
	return fallback
}

func (a arguments) stringSlice(key string) []string {
	raw, ok := a[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

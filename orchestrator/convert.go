package orchestrator

// The agent layer was built and tested independently per stage, each
// package choosing the Go type that was natural for its own output:
// concrete structs like imageprompter.ScenePrompt, raw
// map[string]any trees, or plain slices. Those concrete types only
// survive as long as a session stays in one process; once the session
// round-trips through the store's JSON file they come back as the
// generic shapes encoding/json produces (map[string]interface{},
// []interface{}, float64). Every helper below accepts both shapes so
// buildInput works identically for a session that just advanced in
// memory and one reloaded from disk.

func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func stringMap(v any) map[string]string {
	switch vv := v.(type) {
	case map[string]string:
		return vv
	case map[string]any:
		out := make(map[string]string, len(vv))
		for k, item := range vv {
			if s, ok := item.(string); ok {
				out[k] = s
			}
		}
		return out
	default:
		return nil
	}
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func stringField(v any, key string) string {
	m := asMap(v)
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

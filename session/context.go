package session

import "fmt"

// Well-known context keys, the authoritative merge targets each stage
// writes into on completion.
const (
	KeyChannelNames         = "channel_names"
	KeySelectedChannelName  = "selected_channel_name"
	KeyBenchmarkReport      = "benchmark_report"
	KeyCharacterInfo        = "character_info"
	KeyCharacterImage       = "character_image"
	KeyVideoIdeas           = "video_ideas"
	KeySelectedVideoIdea    = "selected_video_idea"
	KeyScript               = "script"
	KeyImagePrompts         = "image_prompts"
	KeyGeneratedImages      = "images"
	KeyGeneratedVideos      = "videos"
	KeyQCResults            = "qc_results"
	KeyVoiceSections        = "voice_sections"
	KeyFinalVideo           = "final_video"
	KeySubtitleFile         = "subtitle_file"
	KeyUserRequest          = "user_request"
)

// ErrUnknownKey is raised by typed getters when a key was never set, so
// a caller reading through a getter sees a missing key fail loudly.
type ErrUnknownKey struct{ Key string }

func (e ErrUnknownKey) Error() string { return fmt.Sprintf("session context: unknown key %q", e.Key) }

// ErrWrongType is raised when a key exists but holds a different shape
// than the getter requested.
type ErrWrongType struct {
	Key      string
	Expected string
}

func (e ErrWrongType) Error() string {
	return fmt.Sprintf("session context: key %q is not a %s", e.Key, e.Expected)
}

// Context is the tagged-union value map shared across a session's
// stages: string, number, bool, ordered list, and nested-map values,
// accessed through typed getters rather than raw type assertions
// scattered across agents.
type Context map[string]any

// NewContext returns an empty context.
func NewContext() Context { return make(Context) }

func (c Context) GetString(key string) (string, error) {
	v, ok := c[key]
	if !ok {
		return "", ErrUnknownKey{key}
	}
	s, ok := v.(string)
	if !ok {
		return "", ErrWrongType{key, "string"}
	}
	return s, nil
}

func (c Context) GetStringOr(key, def string) string {
	s, err := c.GetString(key)
	if err != nil {
		return def
	}
	return s
}

func (c Context) GetFloat(key string) (float64, error) {
	v, ok := c[key]
	if !ok {
		return 0, ErrUnknownKey{key}
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, ErrWrongType{key, "number"}
	}
}

func (c Context) GetBool(key string) (bool, error) {
	v, ok := c[key]
	if !ok {
		return false, ErrUnknownKey{key}
	}
	b, ok := v.(bool)
	if !ok {
		return false, ErrWrongType{key, "bool"}
	}
	return b, nil
}

func (c Context) GetList(key string) ([]any, error) {
	v, ok := c[key]
	if !ok {
		return nil, ErrUnknownKey{key}
	}
	l, ok := v.([]any)
	if !ok {
		return nil, ErrWrongType{key, "list"}
	}
	return l, nil
}

func (c Context) GetMap(key string) (map[string]any, error) {
	v, ok := c[key]
	if !ok {
		return nil, ErrUnknownKey{key}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, ErrWrongType{key, "map"}
	}
	return m, nil
}

func (c Context) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// Merge copies every key from data into c, overwriting existing values.
// The orchestrator does not use it for stage results: its mergeResult
// renames and wraps keys per stage instead of copying them flat.
func (c Context) Merge(data map[string]any) {
	for k, v := range data {
		c[k] = v
	}
}

// Clone returns a shallow copy, sufficient for the tagged-union value
// shapes this context holds (strings/numbers/bools are copied by value;
// nested lists/maps are shared, matching session save/load round-trip
// semantics where the store re-serializes on save anyway).
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Reset removes only the given keys, leaving every other key in the
// map as it was.
func (c Context) Reset(keys ...string) {
	for _, k := range keys {
		delete(c, k)
	}
}

package jsonx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_DirectObject(t *testing.T) {
	m := Extract(`{"a": 1, "b": "x"}`)
	assert.Equal(t, float64(1), m["a"])
	assert.Equal(t, "x", m["b"])
}

func TestExtract_FencedBlock(t *testing.T) {
	m := Extract("Here you go:\n```json\n{\"ok\": true}\n```\nthanks")
	assert.Equal(t, true, m["ok"])
}

func TestExtract_LeadingProseThenObject(t *testing.T) {
	m := Extract(`Sure, here's the result: {"nested": {"x": [1,2,3]}} and some trailing text`)
	assert.NotNil(t, m)
	nested, ok := m["nested"].(map[string]any)
	assert.True(t, ok)
	assert.Len(t, nested["x"], 3)
}

func TestExtract_BraceInsideString(t *testing.T) {
	m := Extract(`{"text": "a { b } c"}`)
	assert.Equal(t, "a { b } c", m["text"])
}

func TestExtract_NoBrace(t *testing.T) {
	assert.Nil(t, Extract("no json here at all"))
}

func TestExtract_UnbalancedBrace(t *testing.T) {
	assert.Nil(t, Extract("{ this is not valid json"))
}

func TestExtract_Idempotent(t *testing.T) {
	// text with no '{' or unbalanced braces returns nil every time.
	for i := 0; i < 3; i++ {
		assert.Nil(t, Extract("plain text"))
	}
}

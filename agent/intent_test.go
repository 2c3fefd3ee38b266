package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSkip(t *testing.T) {
	assert.True(t, IsSkip("스킵"))
	assert.True(t, IsSkip("skip please"))
	assert.True(t, IsSkip("그냥 패스할게"))
	assert.False(t, IsSkip("확인"))
}

func TestIsConfirm(t *testing.T) {
	assert.True(t, IsConfirm("확정"))
	assert.True(t, IsConfirm("ok"))
	assert.False(t, IsConfirm("스킵"))
}

func TestParseSelection_BareInteger(t *testing.T) {
	n, ok := ParseSelection("2")
	assert.True(t, ok)
	assert.Equal(t, 2, n)
}

func TestParseSelection_NBeon(t *testing.T) {
	n, ok := ParseSelection("3번")
	assert.True(t, ok)
	assert.Equal(t, 3, n)
}

func TestParseSelection_KoreanOrdinal(t *testing.T) {
	n, ok := ParseSelection("첫")
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	n, ok = ParseSelection("열")
	assert.True(t, ok)
	assert.Equal(t, 10, n)
}

func TestParseSelection_NotASelection(t *testing.T) {
	_, ok := ParseSelection("hello there")
	assert.False(t, ok)
}

func TestParseSelection_ZeroOrNegativeRejected(t *testing.T) {
	_, ok := ParseSelection("0")
	assert.False(t, ok)
	_, ok = ParseSelection("-1")
	assert.False(t, ok)
}

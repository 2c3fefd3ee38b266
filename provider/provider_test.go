package provider

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/studioforge/quota"
)

type fakeChatter struct {
	text  string
	err   error
	calls int
}

func (f *fakeChatter) Chat(ctx context.Context, messages []Message, temperature float64, maxTokens int, systemPrompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func TestRouter_FallbackChainSkipsExhaustedQuota(t *testing.T) {
	// P1 (remote, quota exhausted), P2 (remote, OK), P3 (local).
	dir := t.TempDir()
	q := quota.New(filepath.Join(dir, "quota.json"), []quota.Limit{
		{Provider: "p1", Period: "daily", Max: 10},
		{Provider: "p2", Period: "daily", Max: 10},
	}, 80, 95)
	require.True(t, q.Use("p1", 9)) // uses p1 up to just below the block threshold
	// drive p1 over the block threshold explicitly
	q.Use("p1", 10)

	p1 := &fakeChatter{text: "should not be called"}
	p2 := &fakeChatter{text: "from p2"}
	p3 := &fakeChatter{text: "from p3"}

	router := New([]*Provider{
		NewProvider("p1", Remote, 1, p1, 0),
		NewProvider("p2", Remote, 2, p2, 0),
		NewProvider("p3", Local, 3, p3, 0),
	}, q, nil)

	text, err := router.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0.7, 100, "")
	require.NoError(t, err)
	assert.Equal(t, "from p2", text)
	assert.Equal(t, 0, p1.calls)
	assert.Equal(t, 1, p2.calls)
	assert.Equal(t, 0, p3.calls)
	assert.Equal(t, 1, q.Status("p2").Used)
}

func TestRouter_FallsThroughOnError(t *testing.T) {
	dir := t.TempDir()
	q := quota.New(filepath.Join(dir, "quota.json"), nil, 80, 95)

	failing := &fakeChatter{err: errors.New("rate limited")}
	ok := &fakeChatter{text: "recovered"}

	router := New([]*Provider{
		NewProvider("a", Remote, 1, failing, 0),
		NewProvider("b", Local, 2, ok, 0),
	}, q, nil)

	text, err := router.Chat(context.Background(), nil, 0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
}

func TestRouter_AllFailReturnsLastError(t *testing.T) {
	dir := t.TempDir()
	q := quota.New(filepath.Join(dir, "quota.json"), nil, 80, 95)
	router := New([]*Provider{
		NewProvider("a", Local, 1, &fakeChatter{err: errors.New("boom-a")}, 0),
		NewProvider("b", Local, 2, &fakeChatter{err: errors.New("boom-b")}, 0),
	}, q, nil)

	_, err := router.Chat(context.Background(), nil, 0, 0, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom-b")
}

func TestRouter_NoProvidersAttempted(t *testing.T) {
	dir := t.TempDir()
	q := quota.New(filepath.Join(dir, "quota.json"), []quota.Limit{
		{Provider: "a", Period: "daily", Max: 1},
	}, 80, 95)
	q.Use("a", 1)

	router := New([]*Provider{
		NewProvider("a", Remote, 1, &fakeChatter{text: "unreachable"}, 0),
	}, q, nil)

	_, err := router.Chat(context.Background(), nil, 0, 0, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoProvidersAvailable)
}

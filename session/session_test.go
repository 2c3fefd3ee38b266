package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageNeverDecreases(t *testing.T) {
	s := New("s1")
	s.Advance(StageBenchmarking)
	assert.Equal(t, StageBenchmarking, s.CurrentStage)

	s.Advance(StageChannelName) // attempt to go backward
	assert.Equal(t, StageBenchmarking, s.CurrentStage, "stage must not regress")
}

func TestAdvanceFollowsOrder(t *testing.T) {
	s := New("s2")
	for _, want := range Order[1:] {
		s.Advance(want)
		assert.Equal(t, want, s.CurrentStage)
	}
	assert.Equal(t, StageCompleted, s.CurrentStage)
}

func TestRewindResetsOnlyDocumentedKeys(t *testing.T) {
	s := New("s3")
	s.Context.Merge(map[string]any{
		KeyBenchmarkReport:    "report-v1",
		KeySelectedChannelName: "MyChannel",
	})
	s.Context.Reset(KeyBenchmarkReport)
	assert.False(t, s.Context.Has(KeyBenchmarkReport))
	assert.True(t, s.Context.Has(KeySelectedChannelName))
}

func TestFileStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	s := New("rt-1")
	s.Advance(StageCharacter)
	s.Context.Merge(map[string]any{
		"selected_channel_name": "Foo",
		"count":                 float64(3),
		"nested": map[string]any{
			"a": []any{"x", "y"},
		},
	})
	s.AppendMessage(Message{Role: "user", Content: "hello", Images: []string{"img1"}})

	require.NoError(t, store.Save(s))
	loaded, err := store.Load("rt-1")
	require.NoError(t, err)

	assert.Equal(t, s.ID, loaded.ID)
	assert.Equal(t, s.CurrentStage, loaded.CurrentStage)
	assert.Equal(t, s.Context["selected_channel_name"], loaded.Context["selected_channel_name"])
	assert.Equal(t, s.Context["count"], loaded.Context["count"])
	assert.Len(t, loaded.History, 1)
	assert.Equal(t, "hello", loaded.History[0].Content)
}

func TestFileStore_GetOrCreate(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	s1, err := store.GetOrCreate("new-session")
	require.NoError(t, err)
	assert.Equal(t, StageChannelName, s1.CurrentStage)

	s1.Context.Merge(map[string]any{"user_request": "quick run"})
	require.NoError(t, store.Save(s1))

	s2, err := store.GetOrCreate("new-session")
	require.NoError(t, err)
	assert.Equal(t, "quick run", s2.Context.GetStringOr("user_request", ""))
}

func TestFileStore_Delete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	_, err = store.GetOrCreate("to-delete")
	require.NoError(t, err)
	require.NoError(t, store.Delete("to-delete"))

	_, err = store.Load("to-delete")
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "to-delete.json"))
}

func TestContext_UnknownKeyRaises(t *testing.T) {
	c := NewContext()
	_, err := c.GetString("nope")
	assert.ErrorAs(t, err, &ErrUnknownKey{})
}

package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/studioforge/adapter"
	"github.com/kadirpekel/studioforge/agent"
	"github.com/kadirpekel/studioforge/progress"
)

type fakeExtractor struct {
	audioB64   string
	transcript string
	err        error
}

func (f fakeExtractor) ExtractSegment(ctx context.Context, url, start, end string) (string, string, error) {
	return f.audioB64, f.transcript, f.err
}

func newTestVoice(t *testing.T, samples []Sample) (*Voice, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"audio_base64": "c3ludGg="})
	}))
	tts := adapter.NewTTS(srv.URL, srv.Client())
	reg := progress.NewRegistry()
	_, emit := reg.Bind("s1")
	v := New(tts, fakeExtractor{audioB64: "cmVm"}, samples, "preset-a", t.TempDir(), emit)
	return v, srv
}

func testScript() agent.Input {
	return agent.Input{"script": map[string]any{
		"opening":    "hello",
		"intro":      "welcome",
		"body1":      "content one",
		"body2":      "content two",
		"body3":      "content three",
		"conclusion": "bye",
	}}
}

func TestVoice_Execute_AsksOption(t *testing.T) {
	v, srv := newTestVoice(t, nil)
	defer srv.Close()

	result, err := v.Execute(context.Background(), testScript())
	require.NoError(t, err)
	assert.True(t, result.NeedsFeedback)
	assert.Equal(t, agent.StatusWaitingFeedback, v.StatusNow())
}

func TestVoice_DefaultOption_GeneratesAllSections(t *testing.T) {
	v, srv := newTestVoice(t, nil)
	defer srv.Close()

	_, err := v.Execute(context.Background(), testScript())
	require.NoError(t, err)

	result, err := v.HandleFeedback(context.Background(), "1", nil)
	require.NoError(t, err)
	assert.True(t, result.NeedsFeedback)
	sections := result.Data["sections"].(map[string]string)
	assert.Len(t, sections, 6)
}

func TestVoice_YouTubeClone_ParsesWindowAndGenerates(t *testing.T) {
	v, srv := newTestVoice(t, nil)
	defer srv.Close()

	_, err := v.Execute(context.Background(), testScript())
	require.NoError(t, err)

	_, err = v.HandleFeedback(context.Background(), "2", nil)
	require.NoError(t, err)

	result, err := v.HandleFeedback(context.Background(), "https://youtube.com/watch?v=x 00:10-00:40", nil)
	require.NoError(t, err)
	sections := result.Data["sections"].(map[string]string)
	assert.Len(t, sections, 6)
}

func TestVoice_YouTubeClone_RejectsMalformedWindow(t *testing.T) {
	v, srv := newTestVoice(t, nil)
	defer srv.Close()

	_, err := v.Execute(context.Background(), testScript())
	require.NoError(t, err)
	_, err = v.HandleFeedback(context.Background(), "2", nil)
	require.NoError(t, err)

	result, err := v.HandleFeedback(context.Background(), "https://youtube.com/watch?v=x no-window-here", nil)
	require.NoError(t, err)
	assert.True(t, result.NeedsFeedback)
	assert.Contains(t, result.Message, "MM:SS")
}

func TestVoice_SampleClone_SelectsByName(t *testing.T) {
	samples := []Sample{{Name: "narrator-a", ReferenceB64: "cmVmQQ=="}, {Name: "narrator-b", ReferenceB64: "cmVmQg=="}}
	v, srv := newTestVoice(t, samples)
	defer srv.Close()

	_, err := v.Execute(context.Background(), testScript())
	require.NoError(t, err)
	_, err = v.HandleFeedback(context.Background(), "3", nil)
	require.NoError(t, err)

	result, err := v.HandleFeedback(context.Background(), "narrator-b", nil)
	require.NoError(t, err)
	sections := result.Data["sections"].(map[string]string)
	assert.Len(t, sections, 6)
}

func TestVoice_Confirm_CompletesSession(t *testing.T) {
	v, srv := newTestVoice(t, nil)
	defer srv.Close()

	_, err := v.Execute(context.Background(), testScript())
	require.NoError(t, err)
	_, err = v.HandleFeedback(context.Background(), "1", nil)
	require.NoError(t, err)

	result, err := v.HandleFeedback(context.Background(), "확정", nil)
	require.NoError(t, err)
	assert.Equal(t, agent.StatusCompleted, result.Status)
}

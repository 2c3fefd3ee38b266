package character

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"context"

	"github.com/kadirpekel/studioforge/adapter"
	"github.com/kadirpekel/studioforge/agent"
	"github.com/kadirpekel/studioforge/progress"
)

// fakeEngine serves the minimal /analyze_style, /prompt, /history/, /view
// surface a real workflow+vision backend would, always resolving
// instantly so polling never needs more than one tick.
func fakeEngine(t *testing.T, style string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze_style", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"style": style})
	})
	mux.HandleFunc("/prompt", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"prompt_id": "run-1"})
	})
	mux.HandleFunc("/history/run-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "done",
			"outputs": []map[string]any{
				{"NodeID": "save", "Filename": "out.png", "Subfolder": "", "Type": "output"},
			},
		})
	})
	mux.HandleFunc("/view", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"base64": "ZmFrZS1pbWFnZQ=="})
	})
	mux.HandleFunc("/view/delete", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return httptest.NewServer(mux)
}

func newTestCharacter(t *testing.T, style string) (*Character, *httptest.Server) {
	t.Helper()
	srv := fakeEngine(t, style)
	vision := adapter.NewVision(srv.URL, srv.Client())
	workflow := adapter.NewWorkflow(srv.URL, srv.Client(), 10*time.Millisecond)
	reg := progress.NewRegistry()
	_, emit := reg.Bind("s1")
	c := New(vision, workflow, DefaultWorkflowBuilder{Checkpoint: "base.safetensors"}, emit)
	return c, srv
}

func TestCharacter_Execute_WithReferenceImageDetectsStyle(t *testing.T) {
	c, srv := newTestCharacter(t, "anime")
	defer srv.Close()

	result, err := c.Execute(context.Background(), agent.Input{
		"reference_image":       "ref-b64",
		"character_description": "a cheerful fox mascot",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.NeedsFeedback)
	info := result.Data["character_info"].(map[string]any)
	assert.Equal(t, "anime", info["style"])
	assert.Equal(t, agent.StatusWaitingFeedback, c.StatusNow())
}

func TestCharacter_Execute_NoReferenceSkipsStyleDetection(t *testing.T) {
	c, srv := newTestCharacter(t, "anime")
	defer srv.Close()

	result, err := c.Execute(context.Background(), agent.Input{"character_description": "a robot host"})
	require.NoError(t, err)
	info := result.Data["character_info"].(map[string]any)
	assert.Equal(t, "", info["style"])
}

func TestCharacter_HandleFeedback_Confirm(t *testing.T) {
	c, srv := newTestCharacter(t, "cartoon")
	defer srv.Close()

	_, err := c.Execute(context.Background(), agent.Input{"character_description": "a wizard"})
	require.NoError(t, err)

	result, err := c.HandleFeedback(context.Background(), "확정", nil)
	require.NoError(t, err)
	assert.Equal(t, agent.StatusCompleted, result.Status)
}

func TestCharacter_HandleFeedback_BackgroundRemovalRoutesByKeyword(t *testing.T) {
	c, srv := newTestCharacter(t, "realistic")
	defer srv.Close()

	_, err := c.Execute(context.Background(), agent.Input{"character_description": "a knight"})
	require.NoError(t, err)

	result, err := c.HandleFeedback(context.Background(), "배경 제거해줘", nil)
	require.NoError(t, err)
	assert.True(t, result.NeedsFeedback)
	assert.NotEmpty(t, result.Images)
}

func TestClassifyEdit(t *testing.T) {
	assert.Equal(t, EditBackgroundRemoval, ClassifyEdit("배경 제거해줘"))
	assert.Equal(t, EditHairChange, ClassifyEdit("머리 색을 바꿔줘"))
	assert.Equal(t, EditFaceEdit, ClassifyEdit("표정을 더 밝게"))
	assert.Equal(t, EditGeneralEdit, ClassifyEdit("조금 더 귀엽게 해줘"))
	assert.Equal(t, EditNone, ClassifyEdit(""))
}

func TestStyleTransferWeight_CoversAllArtStyles(t *testing.T) {
	for _, style := range []adapter.ArtStyle{
		adapter.StyleCartoon, adapter.StyleAnime, adapter.StyleRealistic,
		adapter.Style3D, adapter.StyleIllustration, adapter.StylePixel,
	} {
		w, ok := StyleTransferWeight[style]
		assert.True(t, ok, "missing weight for %s", style)
		assert.GreaterOrEqual(t, w, 0.0)
		assert.LessOrEqual(t, w, 1.0)
	}
}

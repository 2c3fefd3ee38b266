package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/studioforge/adapter"
	"github.com/kadirpekel/studioforge/agent/composer"
	"github.com/kadirpekel/studioforge/agent/imageprompter"
	"github.com/kadirpekel/studioforge/agent/planner"
	"github.com/kadirpekel/studioforge/benchmark"
	"github.com/kadirpekel/studioforge/pathpolicy"
	"github.com/kadirpekel/studioforge/progress"
	"github.com/kadirpekel/studioforge/provider"
	"github.com/kadirpekel/studioforge/quota"
	"github.com/kadirpekel/studioforge/session"
)

// --- shared fakes -----------------------------------------------------

type fixedChatter struct{ text string }

func (f fixedChatter) Chat(ctx context.Context, messages []provider.Message, temperature float64, maxTokens int, systemPrompt string) (string, error) {
	return f.text, nil
}

func newTestLLM(t *testing.T, responseJSON string) *adapter.LLM {
	t.Helper()
	dir := t.TempDir()
	q := quota.New(filepath.Join(dir, "quota.json"), nil, 80, 95)
	router := provider.New([]*provider.Provider{
		provider.NewProvider("local", provider.Local, 1, fixedChatter{text: responseJSON}, 0),
	}, q, nil)
	return adapter.NewLLM(router)
}

func fakeMetadataServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/channel_info", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"name": "Test Channel", "subscriber_count": 1000, "video_count": 42, "description": "a test channel"})
	})
	mux.HandleFunc("/recent_videos", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"videos": []map[string]any{
			{"id": "v1", "title": "How to start", "thumbnail_url": "http://x/1.jpg", "published_at": "2026-01-01"},
		}})
	})
	mux.HandleFunc("/transcript", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"text": "this is a transcript"})
	})
	return httptest.NewServer(mux)
}

// combinedLLMJSON carries both the channel-naming shape and every field
// the benchmarker's five sub-analyses look for, so one fixed response
// serves whichever agent calls the LLM next.
const combinedLLMJSON = `{
	"channel_names": ["Retro Rewind", "Pixel Past", "Arcade Archive"],
	"color_palette": ["red", "white"], "text_style": "bold", "face_expression": "surprised",
	"layout_style": "left-aligned", "common_elements": ["arrow"], "summary": "ok",
	"hook_style": "question", "structure": "3-act", "tone_and_voice": "energetic",
	"recurring_phrases": ["let's go"], "cta_patterns": ["subscribe"], "average_length": "10m",
	"content_pillars": ["tutorials"], "upload_frequency": "weekly", "video_length_pattern": "10-15m",
	"trending_topics": ["ai"], "engagement_tactics": ["polls"],
	"channel_concept": "a how-to channel", "unique_selling_point": "fast pacing", "brand_voice": "friendly",
	"demographics": "18-34", "interests": ["tech"], "pain_points": ["time"], "content_preferences": "short-form",
	"videos": ["video idea 1", "video idea 2"],
	"ideas": [{"title": "Episode 1", "hook": "a strong hook", "summary": "a fun episode"}]
}`

func newTestOrchestrator(t *testing.T, llmJSON string) (*Orchestrator, *httptest.Server) {
	t.Helper()
	srv := fakeMetadataServer(t)
	metadata := adapter.NewMetadata(srv.URL, srv.Client())
	vision := adapter.NewVision(srv.URL, srv.Client())
	llm := newTestLLM(t, llmJSON)
	cache := benchmark.New(t.TempDir())

	store, err := session.NewFileStore(t.TempDir())
	require.NoError(t, err)
	policy, err := pathpolicy.New(t.TempDir())
	require.NoError(t, err)

	deps := Dependencies{
		Metadata:        metadata,
		Vision:          vision,
		LLM:             llm,
		Cache:           cache,
		PlannerTemplate: planner.DefaultTemplate{},
	}
	reg := progress.NewRegistry()
	factory := NewAgentFactory(deps, policy, reg)
	return New(store, factory, policy, reg), srv
}

// --- pipeline routing ---------------------------------------------------

func TestOrchestrator_StartWorkflow_AsksForChannelName(t *testing.T) {
	o, srv := newTestOrchestrator(t, combinedLLMJSON)
	defer srv.Close()

	result, err := o.StartWorkflow(context.Background(), "s1", "retro gaming channel")
	require.NoError(t, err)
	assert.True(t, result.NeedsFeedback)
	names, _ := result.Data["channel_names"].([]any)
	assert.Len(t, names, 3)

	s, err := o.GetSession("s1")
	require.NoError(t, err)
	assert.Equal(t, session.StageChannelName, s.CurrentStage)
}

func TestOrchestrator_SelectChannelName_AdvancesToBenchmarkingAsk(t *testing.T) {
	o, srv := newTestOrchestrator(t, combinedLLMJSON)
	defer srv.Close()

	_, err := o.StartWorkflow(context.Background(), "s1", "retro gaming channel")
	require.NoError(t, err)

	result, err := o.ProcessMessage(context.Background(), "s1", "1", nil)
	require.NoError(t, err)
	assert.True(t, result.NeedsFeedback)

	s, err := o.GetSession("s1")
	require.NoError(t, err)
	assert.Equal(t, session.StageBenchmarking, s.CurrentStage)
	assert.Equal(t, "Retro Rewind", s.Context[session.KeySelectedChannelName])
}

func TestOrchestrator_BenchmarkingURL_FetchesConfirmation(t *testing.T) {
	o, srv := newTestOrchestrator(t, combinedLLMJSON)
	defer srv.Close()

	_, err := o.StartWorkflow(context.Background(), "s1", "retro gaming channel")
	require.NoError(t, err)
	_, err = o.ProcessMessage(context.Background(), "s1", "1", nil)
	require.NoError(t, err)

	result, err := o.ProcessMessage(context.Background(), "s1", "https://youtube.com/@somechannel", nil)
	require.NoError(t, err)
	assert.True(t, result.NeedsFeedback)
	assert.Contains(t, result.Message, "Test Channel")

	s, err := o.GetSession("s1")
	require.NoError(t, err)
	assert.Equal(t, session.StageBenchmarking, s.CurrentStage)
}

func TestOrchestrator_Skip_AdvancesWithoutCompletingStage(t *testing.T) {
	o, srv := newTestOrchestrator(t, combinedLLMJSON)
	defer srv.Close()

	_, err := o.StartWorkflow(context.Background(), "s1", "retro gaming channel")
	require.NoError(t, err)

	result, err := o.ProcessMessage(context.Background(), "s1", "스킵", nil)
	require.NoError(t, err)
	assert.True(t, result.NeedsFeedback)

	s, err := o.GetSession("s1")
	require.NoError(t, err)
	assert.Equal(t, session.StageBenchmarking, s.CurrentStage)
}

func TestOrchestrator_DeleteSession_RemovesSessionOutputDirAndRecord(t *testing.T) {
	o, srv := newTestOrchestrator(t, combinedLLMJSON)
	defer srv.Close()

	_, err := o.StartWorkflow(context.Background(), "s1", "retro gaming channel")
	require.NoError(t, err)

	sessionDir := o.policy.SessionDir("s1")
	require.NoError(t, os.WriteFile(filepath.Join(sessionDir, "marker"), []byte("x"), 0o600))

	deleted, err := o.DeleteSession("s1")
	require.NoError(t, err)
	assert.Contains(t, deleted, "session-s1")
	assert.Contains(t, deleted, "s1")

	_, statErr := os.Stat(sessionDir)
	assert.True(t, os.IsNotExist(statErr))

	_, err = o.GetSession("s1")
	assert.Error(t, err)
}

// runChain is reached directly (same package) to verify the TTS_SETTINGS
// bridge and the VIDEO_IDEAS stage entry without needing the whole
// character/workflow stack wired up.
func TestOrchestrator_TTSSettings_IsANoOpBridgeToVideoIdeas(t *testing.T) {
	o, srv := newTestOrchestrator(t, combinedLLMJSON)
	defer srv.Close()

	s := session.New("s-bridge")
	s.Context[session.KeySelectedChannelName] = "Retro Rewind"

	result, err := o.runChain(context.Background(), s, session.StageTTSSettings)
	require.NoError(t, err)
	assert.True(t, result.NeedsFeedback)
	assert.Equal(t, session.StageVideoIdeas, s.CurrentStage)
}

// --- merge table ---------------------------------------------------------

func TestMergeResult_VideoIdeasRenamesIdeasKey(t *testing.T) {
	ctx := session.NewContext()
	mergeResult(session.StageVideoIdeas, ctx, map[string]any{
		"ideas":                []any{map[string]any{"title": "a"}},
		"selected_video_idea":  map[string]any{"title": "a"},
	})
	assert.Contains(t, ctx, session.KeyVideoIdeas)
	assert.Contains(t, ctx, session.KeySelectedVideoIdea)
	assert.NotContains(t, ctx, "ideas")
}

func TestMergeResult_VoiceoverRenamesSectionsKey(t *testing.T) {
	ctx := session.NewContext()
	mergeResult(session.StageVoiceover, ctx, map[string]any{"sections": map[string]any{"opening": "aGVsbG8="}})
	assert.Equal(t, map[string]any{"opening": "aGVsbG8="}, ctx[session.KeyVoiceSections])
}

func TestMergeResult_ImagePromptWrapsPromptsList(t *testing.T) {
	ctx := session.NewContext()
	mergeResult(session.StageImagePrompt, ctx, map[string]any{
		"prompts": []imageprompter.ScenePrompt{{ImagePrompt: "a scene"}},
	})
	wrapper, ok := ctx[session.KeyImagePrompts].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, wrapper, "prompts")
}

func TestMergeResult_NilDataIsANoOp(t *testing.T) {
	ctx := session.NewContext()
	ctx["untouched"] = "value"
	mergeResult(session.StageCompose, ctx, nil)
	assert.Equal(t, "value", ctx["untouched"])
}

// --- buildInput helpers ---------------------------------------------------

func TestFlattenVideoIdea_FromMapShape(t *testing.T) {
	idea := map[string]any{"title": "Episode 1", "hook": "a hook", "summary": "a summary"}
	out := flattenVideoIdea(idea)
	assert.Contains(t, out, "Episode 1")
	assert.Contains(t, out, "a hook")
	assert.Contains(t, out, "a summary")
}

func TestFlattenVideoIdea_FromPlainString(t *testing.T) {
	assert.Equal(t, "already a string", flattenVideoIdea("already a string"))
}

func TestFlattenScript_JoinsSectionsInOrder(t *testing.T) {
	script := map[string]any{
		"opening": "Welcome back.", "intro": "Today we talk retro games.",
		"body1": "First point.", "conclusion": "See you next time.",
	}
	out := flattenScript(script)
	assert.Equal(t, "Welcome back. Today we talk retro games. First point. See you next time.", out)
}

func TestFlattenCharacterInfo_CombinesStyleAndDescription(t *testing.T) {
	info := map[string]any{"style": "anime", "description": "a fox mascot"}
	assert.Equal(t, "anime style, a fox mascot", flattenCharacterInfo(info))
}

func TestScenePromptsFromContext_ReconstructsFromGenericShape(t *testing.T) {
	wrapper := map[string]any{"prompts": []any{
		map[string]any{"image_prompt": "a", "video_prompt": "b", "expression": "happy", "props": []any{"hat"}},
	}}
	out := scenePromptsFromContext(wrapper)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ImagePrompt)
	assert.Equal(t, []string{"hat"}, out[0].Props)
}

func TestScenePromptsFromContext_PassesThroughLiveSlice(t *testing.T) {
	wrapper := map[string]any{"prompts": []imageprompter.ScenePrompt{{ImagePrompt: "a"}}}
	out := scenePromptsFromContext(wrapper)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ImagePrompt)
}

func TestBuildComposerScenes_PicksLastSentenceVideoPerSection(t *testing.T) {
	ctx := session.NewContext()
	ctx[session.KeyScript] = map[string]any{
		"opening": "Hello there. Welcome to the show.",
	}
	ctx[session.KeyGeneratedVideos] = []string{"video0", "video1"}
	ctx[session.KeyVoiceSections] = map[string]any{"opening": "audio0"}

	scenes := buildComposerScenes(ctx)
	require.Len(t, scenes, 1)
	assert.Equal(t, composer.Scene{VideoB64: "video1", AudioB64: "audio0", Text: "Hello there. Welcome to the show."}, scenes[0])
}

func TestBuildComposerScenes_SkipsSectionsWithNoAudio(t *testing.T) {
	ctx := session.NewContext()
	ctx[session.KeyScript] = map[string]any{"opening": "Hello there again now."}
	ctx[session.KeyGeneratedVideos] = []string{"video0"}
	ctx[session.KeyVoiceSections] = map[string]any{}

	assert.Empty(t, buildComposerScenes(ctx))
}

func TestBuildInput_ChannelName_ReadsUserRequest(t *testing.T) {
	ctx := session.NewContext()
	ctx[session.KeyUserRequest] = "a cooking channel"
	input := buildInput(session.StageChannelName, ctx)
	assert.Equal(t, "a cooking channel", input["channel_concept"])
}

func TestBuildInput_ImagePrompt_FlattensScriptAndCharacterInfo(t *testing.T) {
	ctx := session.NewContext()
	ctx[session.KeyScript] = map[string]any{"opening": "Hello world."}
	ctx[session.KeyCharacterInfo] = map[string]any{"style": "cartoon", "description": "a dog"}
	input := buildInput(session.StageImagePrompt, ctx)
	assert.Equal(t, "Hello world.", input["script"])
	assert.Equal(t, "cartoon style, a dog", input["character_info"])
}

package planner

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/studioforge/adapter"
	"github.com/kadirpekel/studioforge/agent"
	"github.com/kadirpekel/studioforge/progress"
	"github.com/kadirpekel/studioforge/provider"
	"github.com/kadirpekel/studioforge/quota"
)

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

func newTestEmitter() progress.Emitter {
	reg := progress.NewRegistry()
	_, emit := reg.Bind("test-session")
	return emit
}

func TestPlanner_ChannelName_ExecuteReturnsChoices(t *testing.T) {
	llm := newTestLLM(t, `{"channel_names": ["Alpha", "Beta", "Gamma"]}`)
	p := New(ModeChannelName, llm, DefaultTemplate{}, newTestEmitter())

	result, err := p.Execute(context.Background(), agent.Input{"channel_concept": "retro gaming"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.NeedsFeedback)
	assert.Equal(t, agent.StatusWaitingFeedback, p.StatusNow())
	names, _ := result.Data["channel_names"].([]any)
	assert.Len(t, names, 3)
}

func TestPlanner_ChannelName_SelectionPicksByIndex(t *testing.T) {
	llm := newTestLLM(t, `{"channel_names": ["Alpha", "Beta", "Gamma"]}`)
	p := New(ModeChannelName, llm, DefaultTemplate{}, newTestEmitter())

	_, err := p.Execute(context.Background(), agent.Input{})
	require.NoError(t, err)

	result, err := p.HandleFeedback(context.Background(), "2", nil)
	require.NoError(t, err)
	assert.Equal(t, agent.StatusCompleted, result.Status)
	assert.Equal(t, "Beta", result.Data["selected_channel_name"])
}

func TestPlanner_ChannelName_ConfirmKeepsFirstRunData(t *testing.T) {
	llm := newTestLLM(t, `{"channel_names": ["Alpha", "Beta"]}`)
	p := New(ModeChannelName, llm, DefaultTemplate{}, newTestEmitter())

	_, err := p.Execute(context.Background(), agent.Input{})
	require.NoError(t, err)

	result, err := p.HandleFeedback(context.Background(), "확정", nil)
	require.NoError(t, err)
	assert.Equal(t, agent.StatusCompleted, result.Status)
	assert.NotNil(t, result.Data["channel_names"])
}

func TestPlanner_Execute_InvalidJSONReportsParseError(t *testing.T) {
	llm := newTestLLM(t, "not json at all")
	p := New(ModeScript, llm, DefaultTemplate{}, newTestEmitter())

	result, err := p.Execute(context.Background(), agent.Input{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, agent.StatusError, p.StatusNow())
}

func TestPlanner_Script_ConfirmCompletes(t *testing.T) {
	llm := newTestLLM(t, `{"script": {"opening": "hi"}}`)
	p := New(ModeScript, llm, DefaultTemplate{}, newTestEmitter())

	_, err := p.Execute(context.Background(), agent.Input{})
	require.NoError(t, err)

	result, err := p.HandleFeedback(context.Background(), "확정", nil)
	require.NoError(t, err)
	assert.Equal(t, agent.StatusCompleted, result.Status)
}

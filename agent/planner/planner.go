// Package planner implements the text-heavy stages of the pipeline:
// channel naming, video idea generation, and script writing. All three
// share one shape — build a prompt, call the LLM, extract a JSON
// payload — so one Planner type parametrized by Mode covers all three.
package planner

import (
	"context"
	"fmt"

	"github.com/kadirpekel/studioforge/adapter"
	"github.com/kadirpekel/studioforge/agent"
	"github.com/kadirpekel/studioforge/errs"
	"github.com/kadirpekel/studioforge/jsonx"
	"github.com/kadirpekel/studioforge/progress"
)

// Mode selects which stage's prompt template and response shape this
// Planner instance handles.
type Mode string

const (
	ModeChannelName Mode = "channel_name"
	ModeVideoIdeas  Mode = "video_ideas"
	ModeScript      Mode = "script"
)

// Template supplies the opaque, stage-specific prompt text; the content
// itself is configuration, not code.
type Template interface {
	SystemPrompt(mode Mode) string
	UserPrompt(mode Mode, input agent.Input) string
}

// Planner drives one text-generation stage through ASK -> GENERATING ->
// REVIEW -> DONE.
type Planner struct {
	mode     Mode
	llm      *adapter.LLM
	tmpl     Template
	emit     progress.Emitter
	status   agent.Status
	lastData map[string]any
}

// New builds a Planner for one mode.
func New(mode Mode, llm *adapter.LLM, tmpl Template, emit progress.Emitter) *Planner {
	return &Planner{mode: mode, llm: llm, tmpl: tmpl, emit: emit, status: agent.StatusIdle}
}

func (p *Planner) StatusNow() agent.Status { return p.status }

func (p *Planner) Execute(ctx context.Context, input agent.Input) (agent.Result, error) {
	p.status = agent.StatusRunning
	p.emit.Emit("generating", string(p.mode))

	sys := p.tmpl.SystemPrompt(p.mode)
	user := p.tmpl.UserPrompt(p.mode, input)

	text, err := p.llm.Generate(ctx, user, 0.8, 2048, sys)
	if err != nil {
		p.status = agent.StatusError
		return p.errorResult(err)
	}

	data := jsonx.Extract(text)
	if data == nil {
		p.status = agent.StatusError
		return p.errorResult(errs.New(errs.ParseError, "planner.execute", "LLM response had no valid JSON payload", nil))
	}

	p.lastData = data
	p.status = agent.StatusWaitingFeedback
	return p.reviewResult(data), nil
}

// HandleFeedback accepts confirm (done), a selection index (for
// channel-name or video-idea lists), or free text treated as a
// regeneration instruction fed back into the next prompt.
func (p *Planner) HandleFeedback(ctx context.Context, text string, images []string) (agent.Result, error) {
	// Selection is checked before confirm: several Korean ordinal words
	// ("네" = 4th) overlap with confirm tokens, and a selectable-list mode
	// should treat those as selections first.
	if n, ok := agent.ParseSelection(text); ok && p.hasSelectableList() {
		selected, err := p.selectFrom(n)
		if err != nil {
			return p.errorResult(err)
		}
		p.status = agent.StatusCompleted
		return agent.Result{
			Success: true,
			Step:    string(p.mode) + ".selected",
			Status:  agent.StatusCompleted,
			Data:    selected,
		}, nil
	}

	if agent.IsConfirm(text) {
		p.status = agent.StatusCompleted
		return agent.Result{
			Success: true,
			Step:    string(p.mode) + ".confirmed",
			Status:  agent.StatusCompleted,
			Data:    p.lastData,
		}, nil
	}

	// Anything else is a regeneration instruction: rerun with the extra
	// text folded into the user prompt via input override.
	input := agent.Input{"feedback": text}
	return p.Execute(ctx, input)
}

func (p *Planner) hasSelectableList() bool {
	return p.mode == ModeChannelName || p.mode == ModeVideoIdeas
}

func (p *Planner) selectFrom(n int) (map[string]any, error) {
	switch p.mode {
	case ModeChannelName:
		names, _ := toStringList(p.lastData["channel_names"])
		if n < 1 || n > len(names) {
			return nil, errs.New(errs.UserInputError, "planner.select", fmt.Sprintf("선택 번호 %d가 범위를 벗어났습니다", n), nil)
		}
		return map[string]any{"channel_names": names, "selected_channel_name": names[n-1]}, nil
	case ModeVideoIdeas:
		ideas, ok := p.lastData["ideas"].([]any)
		if !ok || n < 1 || n > len(ideas) {
			return nil, errs.New(errs.UserInputError, "planner.select", fmt.Sprintf("선택 번호 %d가 범위를 벗어났습니다", n), nil)
		}
		return map[string]any{"ideas": ideas, "selected_video_idea": ideas[n-1]}, nil
	default:
		return nil, errs.New(errs.UserInputError, "planner.select", "this stage has no selectable list", nil)
	}
}

func toStringList(v any) ([]string, bool) {
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}

func (p *Planner) reviewResult(data map[string]any) agent.Result {
	return agent.Result{
		Success:       true,
		Step:          string(p.mode) + ".review",
		Status:        agent.StatusWaitingFeedback,
		NeedsFeedback: true,
		Data:          data,
	}
}

func (p *Planner) errorResult(err error) (agent.Result, error) {
	return agent.Result{
		Success:       false,
		Step:          string(p.mode) + ".error",
		Status:        agent.StatusError,
		NeedsFeedback: true,
		Message:       errs.UserSafeMessage(err),
	}, nil
}

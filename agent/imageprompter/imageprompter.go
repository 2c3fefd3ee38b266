// Package imageprompter implements the ImagePrompter agent: splits a
// script into sentences and asks the LLM for a per-scene visual prompt.
package imageprompter

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kadirpekel/studioforge/adapter"
	"github.com/kadirpekel/studioforge/agent"
	"github.com/kadirpekel/studioforge/errs"
	"github.com/kadirpekel/studioforge/jsonx"
	"github.com/kadirpekel/studioforge/progress"
)

var sentenceSplit = regexp.MustCompile(`[.!?]\s+`)

const minSentenceLen = 6

// ScenePrompt is one entry in the per-scene prompt list.
type ScenePrompt struct {
	ImagePrompt string   `json:"image_prompt"`
	VideoPrompt string   `json:"video_prompt"`
	Expression  string   `json:"expression"`
	Props       []string `json:"props"`
}

// SplitSentences breaks text into trimmed sentences on '.', '!', or '?'
// followed by whitespace, dropping fragments shorter than 6 characters.
func SplitSentences(text string) []string {
	raw := sentenceSplit.Split(text, -1)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) >= minSentenceLen {
			out = append(out, s)
		}
	}
	return out
}

// ImagePrompter drives GENERATING -> REVIEW for the per-scene prompt list.
type ImagePrompter struct {
	llm       *adapter.LLM
	visualTag string // fixed visual style enforced in every prompt
	emit      progress.Emitter

	status  agent.Status
	prompts []ScenePrompt

	sentences     []string
	characterInfo string
}

// New builds an ImagePrompter. visualTag is the fixed visual style
// string folded into every scene prompt for consistency.
func New(llm *adapter.LLM, visualTag string, emit progress.Emitter) *ImagePrompter {
	return &ImagePrompter{llm: llm, visualTag: visualTag, emit: emit, status: agent.StatusIdle}
}

func (p *ImagePrompter) StatusNow() agent.Status { return p.status }

func (p *ImagePrompter) Execute(ctx context.Context, input agent.Input) (agent.Result, error) {
	p.status = agent.StatusRunning
	script, _ := input["script"].(string)
	characterInfo, _ := input["character_info"].(string)

	sentences := SplitSentences(script)
	if len(sentences) == 0 {
		p.status = agent.StatusError
		return p.errorResult(errs.New(errs.UserInputError, "imageprompter.execute", "script has no usable sentences", nil))
	}

	p.sentences = sentences
	p.characterInfo = characterInfo

	prompts, err := p.generateAll(ctx, "")
	if err != nil {
		p.status = agent.StatusError
		return p.errorResult(err)
	}

	p.prompts = prompts
	p.status = agent.StatusWaitingFeedback
	return p.reviewResult(), nil
}

// generateAll regenerates every scene from p.sentences. direction, when
// non-empty, is an overall feedback note folded into every scene's
// prompt (e.g. "더 어둡게 해줘"); it is empty for the initial generation.
func (p *ImagePrompter) generateAll(ctx context.Context, direction string) ([]ScenePrompt, error) {
	prompts := make([]ScenePrompt, len(p.sentences))
	for i, sentence := range p.sentences {
		scene, err := p.generateScene(ctx, sentence, p.characterInfo, direction)
		if err != nil {
			return nil, err
		}
		prompts[i] = scene
		p.emit.Emit("generating", fmt.Sprintf("scene %d/%d", i+1, len(p.sentences)))
	}
	return prompts, nil
}

func (p *ImagePrompter) generateScene(ctx context.Context, sentence, characterInfo, direction string) (ScenePrompt, error) {
	sys := fmt.Sprintf(
		"You are a visual prompt designer. Enforce this visual style in every prompt: %s. "+
			`Respond with JSON only: {"image_prompt": "...", "video_prompt": "...", "expression": "...", "props": ["..."]}`,
		p.visualTag,
	)
	user := fmt.Sprintf("Scene narration: %q\nCharacter: %s", sentence, characterInfo)
	if direction != "" {
		user += fmt.Sprintf("\nApply this feedback to the scene: %s", direction)
	}

	text, err := p.llm.Generate(ctx, user, 0.7, 512, sys)
	if err != nil {
		return ScenePrompt{}, err
	}
	data := jsonx.Extract(text)
	if data == nil {
		return ScenePrompt{}, errs.New(errs.ParseError, "imageprompter.generate_scene", "LLM response had no valid JSON payload", nil)
	}
	return sceneFromMap(data), nil
}

func sceneFromMap(data map[string]any) ScenePrompt {
	scene := ScenePrompt{
		ImagePrompt: stringOr(data["image_prompt"]),
		VideoPrompt: stringOr(data["video_prompt"]),
		Expression:  stringOr(data["expression"]),
	}
	if raw, ok := data["props"].([]any); ok {
		for _, item := range raw {
			if s, ok := item.(string); ok {
				scene.Props = append(scene.Props, s)
			}
		}
	}
	return scene
}

func stringOr(v any) string {
	s, _ := v.(string)
	return s
}

// HandleFeedback supports confirm (done), "N번 <instruction>" per-scene
// modification, and full regeneration on any other free text.
func (p *ImagePrompter) HandleFeedback(ctx context.Context, text string, images []string) (agent.Result, error) {
	if agent.IsConfirm(text) {
		p.status = agent.StatusCompleted
		return agent.Result{
			Success: true,
			Step:    "imageprompter.confirmed",
			Status:  agent.StatusCompleted,
			Data:    map[string]any{"prompts": p.prompts},
		}, nil
	}

	if n, instruction, ok := parseSceneInstruction(text); ok {
		if n < 1 || n > len(p.prompts) {
			return p.errorResult(errs.New(errs.UserInputError, "imageprompter.handle_feedback", fmt.Sprintf("장면 번호 %d가 범위를 벗어났습니다", n), nil))
		}
		scene, err := p.generateScene(ctx, instruction, p.characterInfo, "")
		if err != nil {
			return p.errorResult(err)
		}
		p.prompts[n-1] = scene
		return p.reviewResult(), nil
	}

	prompts, err := p.generateAll(ctx, text)
	if err != nil {
		return p.errorResult(err)
	}
	p.prompts = prompts
	return p.reviewResult(), nil
}

var sceneInstructionPattern = regexp.MustCompile(`^(\d+)번\s*(.*)$`)

func parseSceneInstruction(text string) (int, string, bool) {
	m := sceneInstructionPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return n, m[2], true
}

func (p *ImagePrompter) reviewResult() agent.Result {
	return agent.Result{
		Success:       true,
		Step:          "imageprompter.review",
		Status:        agent.StatusWaitingFeedback,
		NeedsFeedback: true,
		Data:          map[string]any{"prompts": p.prompts},
	}
}

func (p *ImagePrompter) errorResult(err error) (agent.Result, error) {
	return agent.Result{
		Success:       false,
		Step:          "imageprompter.error",
		Status:        agent.StatusError,
		NeedsFeedback: true,
		Message:       errs.UserSafeMessage(err),
	}, nil
}

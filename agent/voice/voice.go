// Package voice implements the Voiceover agent: voice-option selection,
// optional clone-source collection, and per-section speech synthesis.
package voice

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kadirpekel/studioforge/adapter"
	"github.com/kadirpekel/studioforge/agent"
	"github.com/kadirpekel/studioforge/errs"
	"github.com/kadirpekel/studioforge/progress"
)

// Section order matches the script shape produced by the Planner.
var sectionOrder = []string{"opening", "intro", "body1", "body2", "body3", "conclusion"}

type phase string

const (
	phaseAskOption     phase = "ask_option"
	phaseAskCloneType  phase = "ask_clone_type"
	phaseAskYouTube    phase = "ask_youtube_info"
	phaseAskSample     phase = "ask_sample_select"
	phaseGenerating    phase = "generating"
	phaseConfirm       phase = "confirm"
)

var windowPattern = regexp.MustCompile(`(\d{1,2}:\d{2})-(\d{1,2}:\d{2})`)

// Sample is one entry in the precomputed clone-from-sample list.
type Sample struct {
	Name          string
	ReferenceB64  string
}

// YouTubeExtractor pulls an audio segment (and optional transcript) from
// a YouTube URL within a given MM:SS-MM:SS window.
type YouTubeExtractor interface {
	ExtractSegment(ctx context.Context, url, startMMSS, endMMSS string) (audioB64 string, transcript string, err error)
}

// Voice drives ASK_OPTION -> (ASK_CLONE_TYPE -> (ASK_YOUTUBE_INFO |
// ASK_SAMPLE_SELECT)) -> GENERATING -> CONFIRM.
type Voice struct {
	tts       *adapter.TTS
	extractor YouTubeExtractor
	samples   []Sample
	outputDir string
	emit      progress.Emitter

	status agent.Status
	ph     phase

	presetSpeaker     string
	referenceAudioB64 string
	referenceText     string

	script  map[string]string
	results map[string]string
}

// New builds a Voice agent. presetSpeaker names the default-voice preset.
// outputDir is the per-session "audio" directory each confirmed section's
// synthesized speech is persisted to; an empty outputDir skips persistence.
func New(tts *adapter.TTS, extractor YouTubeExtractor, samples []Sample, presetSpeaker, outputDir string, emit progress.Emitter) *Voice {
	return &Voice{tts: tts, extractor: extractor, samples: samples, presetSpeaker: presetSpeaker, outputDir: outputDir, emit: emit, status: agent.StatusIdle, ph: phaseAskOption}
}

func (v *Voice) StatusNow() agent.Status { return v.status }

func (v *Voice) Execute(ctx context.Context, input agent.Input) (agent.Result, error) {
	v.status = agent.StatusRunning
	v.script = extractSections(input)
	v.ph = phaseAskOption
	v.status = agent.StatusWaitingFeedback
	return agent.Result{
		Success:       true,
		Step:          "voice.ask_option",
		Status:        agent.StatusWaitingFeedback,
		NeedsFeedback: true,
		Message:       "음성을 선택해주세요: 1) 기본 음성  2) 유튜브에서 복제  3) 샘플에서 선택",
	}, nil
}

func extractSections(input agent.Input) map[string]string {
	out := make(map[string]string, len(sectionOrder))
	raw, _ := input["script"].(map[string]any)
	for _, name := range sectionOrder {
		if s, ok := raw[name].(string); ok {
			out[name] = s
		}
	}
	return out
}

func (v *Voice) HandleFeedback(ctx context.Context, text string, images []string) (agent.Result, error) {
	switch v.ph {
	case phaseAskOption:
		return v.handleAskOption(ctx, text)
	case phaseAskCloneType:
		return v.handleAskCloneType(text)
	case phaseAskYouTube:
		return v.handleAskYouTube(ctx, text)
	case phaseAskSample:
		return v.handleAskSample(ctx, text)
	case phaseConfirm:
		return v.handleConfirm(ctx, text)
	default:
		return v.errorResult(errs.New(errs.InvariantViolation, "voice.handle_feedback", "unexpected phase "+string(v.ph), nil))
	}
}

func (v *Voice) handleAskOption(ctx context.Context, text string) (agent.Result, error) {
	switch {
	case matchesAny(text, "1", "기본", "default"):
		v.presetSpeaker = firstNonEmpty(v.presetSpeaker, "default")
		v.referenceAudioB64 = ""
		return v.generate(ctx)
	case matchesAny(text, "2", "유튜브", "youtube"):
		v.ph = phaseAskYouTube
		return v.ask("clone-type 명시됨: 유튜브 URL과 시간 구간(MM:SS-MM:SS)을 알려주세요."), nil
	case matchesAny(text, "3", "샘플", "sample"):
		v.ph = phaseAskSample
		return v.ask(v.sampleListMessage()), nil
	default:
		return v.ask("1, 2, 3 중 하나를 선택해주세요."), nil
	}
}

func (v *Voice) handleAskCloneType(text string) (agent.Result, error) {
	switch {
	case matchesAny(text, "유튜브", "youtube"):
		v.ph = phaseAskYouTube
		return v.ask("유튜브 URL과 시간 구간(MM:SS-MM:SS)을 알려주세요."), nil
	case matchesAny(text, "샘플", "sample"):
		v.ph = phaseAskSample
		return v.ask(v.sampleListMessage()), nil
	default:
		return v.ask("유튜브 또는 샘플 중 하나를 선택해주세요."), nil
	}
}

func (v *Voice) handleAskYouTube(ctx context.Context, text string) (agent.Result, error) {
	m := windowPattern.FindStringSubmatch(text)
	if m == nil {
		return v.ask("시간 구간을 MM:SS-MM:SS 형식으로 알려주세요 (예: 01:10-01:40)."), nil
	}
	url := strings.TrimSpace(windowPattern.ReplaceAllString(text, ""))
	audioB64, transcript, err := v.extractor.ExtractSegment(ctx, url, m[1], m[2])
	if err != nil {
		return v.errorResult(err)
	}
	v.referenceAudioB64 = audioB64
	v.referenceText = transcript
	return v.generate(ctx)
}

func (v *Voice) handleAskSample(ctx context.Context, text string) (agent.Result, error) {
	for _, s := range v.samples {
		if matchesAny(text, s.Name) {
			v.referenceAudioB64 = s.ReferenceB64
			v.referenceText = ""
			return v.generate(ctx)
		}
	}
	return v.ask("목록에 있는 샘플 이름으로 다시 알려주세요."), nil
}

func (v *Voice) handleConfirm(ctx context.Context, text string) (agent.Result, error) {
	if agent.IsConfirm(text) {
		v.status = agent.StatusCompleted
		return agent.Result{
			Success: true,
			Step:    "voice.confirmed",
			Status:  agent.StatusCompleted,
			Data:    map[string]any{"sections": v.results},
		}, nil
	}
	return v.generate(ctx)
}

func (v *Voice) generate(ctx context.Context) (agent.Result, error) {
	v.ph = phaseGenerating
	v.emit.Emit("generating", "synthesizing voice sections")

	results := make(map[string]string, len(sectionOrder))
	for _, name := range sectionOrder {
		text, ok := v.script[name]
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		req := adapter.TTSRequest{Text: text, ReferenceText: v.referenceText}
		if v.referenceAudioB64 != "" {
			req.ReferenceAudioB64 = v.referenceAudioB64
		} else {
			req.PresetSpeaker = v.presetSpeaker
		}
		out, err := v.tts.Synthesize(ctx, req)
		if err != nil {
			return v.errorResult(err)
		}
		if err := v.persistSection(name, out.AudioB64); err != nil {
			return v.errorResult(err)
		}
		results[name] = out.AudioB64
		v.emit.Emit("generating", fmt.Sprintf("section %s synthesized", name))
	}

	v.results = results
	v.ph = phaseConfirm
	v.status = agent.StatusWaitingFeedback
	return agent.Result{
		Success:       true,
		Step:          "voice.review",
		Status:        agent.StatusWaitingFeedback,
		NeedsFeedback: true,
		Data:          map[string]any{"sections": results},
	}, nil
}

// persistSection writes one section's synthesized audio to the
// per-session audio directory. A no-op when outputDir is unset.
func (v *Voice) persistSection(name, audioB64 string) error {
	if v.outputDir == "" {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(audioB64)
	if err != nil {
		return errs.New(errs.ParseError, "voice.persist_section", "decoding "+name+" audio", err)
	}
	path := filepath.Join(v.outputDir, name+".wav")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return errs.New(errs.ResourceError, "voice.persist_section", "writing "+name+" audio", err)
	}
	return nil
}

func (v *Voice) ask(message string) agent.Result {
	v.status = agent.StatusWaitingFeedback
	return agent.Result{
		Success:       true,
		Step:          "voice." + string(v.ph),
		Status:        agent.StatusWaitingFeedback,
		NeedsFeedback: true,
		Message:       message,
	}
}

func (v *Voice) sampleListMessage() string {
	if len(v.samples) == 0 {
		return "사용 가능한 샘플이 없습니다."
	}
	names := make([]string, len(v.samples))
	for i, s := range v.samples {
		names[i] = s.Name
	}
	return "샘플 중 하나를 선택해주세요: " + strings.Join(names, ", ")
}

func (v *Voice) errorResult(err error) (agent.Result, error) {
	v.status = agent.StatusError
	return agent.Result{
		Success:       false,
		Step:          "voice.error",
		Status:        agent.StatusError,
		NeedsFeedback: true,
		Message:       errs.UserSafeMessage(err),
	}, nil
}

func matchesAny(text string, tokens ...string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, tok := range tokens {
		if lower == strings.ToLower(tok) || strings.Contains(lower, strings.ToLower(tok)) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

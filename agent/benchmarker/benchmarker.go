// Package benchmarker implements the Benchmarker agent: ASK -> CONFIRM ->
// COLLECT -> ANALYZE -> REPORT channel-benchmarking against one or more
// competitor YouTube channels.
package benchmarker

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/studioforge/adapter"
	"github.com/kadirpekel/studioforge/agent"
	"github.com/kadirpekel/studioforge/benchmark"
	"github.com/kadirpekel/studioforge/errs"
	"github.com/kadirpekel/studioforge/jsonx"
	"github.com/kadirpekel/studioforge/progress"
)

const (
	maxRecentVideos         = 20
	maxTranscripts          = 5
	maxThumbnailURLs        = 8
	transcriptCharLimit     = 5000
	maxThumbnailScreenshots = 6
)

var channelURLPattern = regexp.MustCompile(`https?://(?:www\.)?(?:youtube\.com/(?:@[\w.\-]+|channel/[\w\-]+|c/[\w\-]+|watch\S*)|youtu\.be/\S+)`)

// ExtractChannelURL pulls the first recognizable YouTube channel or
// video URL out of free text.
func ExtractChannelURL(text string) (string, bool) {
	m := channelURLPattern.FindString(text)
	if m == "" {
		return "", false
	}
	return m, true
}

type phase string

const (
	phaseAsk      phase = "ask"
	phaseCacheHit phase = "cache_hit"
	phaseConfirm  phase = "confirm"
)

// Benchmarker drives the channel-benchmarking phase machine.
type Benchmarker struct {
	metadata *adapter.Metadata
	vision   *adapter.Vision
	llm      *adapter.LLM
	browser  *adapter.Browser
	cache    *benchmark.Cache
	emit     progress.Emitter

	status agent.Status
	ph     phase

	channelURL  string
	channelInfo adapter.ChannelMetadata
	cachedEntry *benchmark.CacheEntry

	videos        []adapter.VideoSummary
	transcripts   []string
	thumbnailURLs []string
	gridShot      string
	thumbShots    []string
}

// New builds a Benchmarker.
func New(metadata *adapter.Metadata, vision *adapter.Vision, llm *adapter.LLM, browser *adapter.Browser, cache *benchmark.Cache, emit progress.Emitter) *Benchmarker {
	return &Benchmarker{metadata: metadata, vision: vision, llm: llm, browser: browser, cache: cache, emit: emit, status: agent.StatusIdle}
}

func (b *Benchmarker) StatusNow() agent.Status { return b.status }

func (b *Benchmarker) Execute(ctx context.Context, input agent.Input) (agent.Result, error) {
	b.status = agent.StatusRunning
	text, _ := input["text"].(string)
	return b.intake(ctx, text)
}

func (b *Benchmarker) intake(ctx context.Context, text string) (agent.Result, error) {
	url, ok := ExtractChannelURL(text)
	if !ok {
		b.ph = phaseAsk
		b.status = agent.StatusWaitingFeedback
		return b.askResult("분석할 채널의 유튜브 URL을 알려주세요."), nil
	}
	b.channelURL = url

	if entry, err := b.cache.Find(url); err == nil && entry != nil {
		b.cachedEntry = entry
		b.ph = phaseCacheHit
		b.status = agent.StatusWaitingFeedback
		return b.askResult(benchmark.Summary(entry)), nil
	}

	return b.fetchConfirmation(ctx)
}

func (b *Benchmarker) fetchConfirmation(ctx context.Context) (agent.Result, error) {
	info, err := b.metadata.ChannelInfo(ctx, b.channelURL)
	if err != nil {
		return b.errorResult(err)
	}
	b.channelInfo = info
	b.ph = phaseConfirm
	b.status = agent.StatusWaitingFeedback

	message := fmt.Sprintf(
		"**채널명:** %s\n**구독자:** %d\n**영상 수:** %d\n**설명:** %s\n\n이 채널이 맞나요? ('확인' 또는 다른 채널 URL)",
		info.Name, info.SubscriberCount, info.VideoCount, info.Description,
	)
	return b.askResult(message), nil
}

// HandleFeedback dispatches on the current phase.
func (b *Benchmarker) HandleFeedback(ctx context.Context, text string, images []string) (agent.Result, error) {
	switch b.ph {
	case phaseAsk:
		return b.intake(ctx, text)
	case phaseCacheHit:
		if benchmark.WantsReanalyze(text) {
			if _, err := b.cache.Delete(b.channelURL); err != nil {
				return b.errorResult(err)
			}
			b.cachedEntry = nil
			return b.fetchConfirmation(ctx)
		}
		b.status = agent.StatusCompleted
		return agent.Result{
			Success: true,
			Step:    "benchmark_cached",
			Status:  agent.StatusCompleted,
			Data:    map[string]any{"report": b.cachedEntry.Report, "cached": true},
		}, nil
	case phaseConfirm:
		if agent.IsConfirm(text) {
			return b.runPipeline(ctx)
		}
		if url, ok := ExtractChannelURL(text); ok {
			b.channelURL = url
			return b.fetchConfirmation(ctx)
		}
		return b.errorResult(errs.New(errs.UserInputError, "benchmarker.handle_feedback", "'확인' 또는 다른 채널 URL을 입력해주세요", nil))
	default:
		return b.errorResult(errs.New(errs.InvariantViolation, "benchmarker.handle_feedback", "no active phase", nil))
	}
}

// runPipeline executes COLLECT -> ANALYZE -> REPORT once the channel is
// confirmed.
func (b *Benchmarker) runPipeline(ctx context.Context) (agent.Result, error) {
	b.emit.Emit("collecting", "fetching recent videos and transcripts")
	if err := b.collect(ctx); err != nil {
		return b.errorResult(err)
	}

	b.emit.Emit("analyzing", "running sub-analyses")
	report := b.analyze(ctx)

	b.emit.Emit("analyzing", "building replication guide")
	report.ReplicationGuide = b.buildReplicationGuide(ctx)
	report.AnalyzedChannels = []string{b.channelURL}
	report.AnalyzedVideoCount = len(b.videos)

	key, err := b.cache.Save([]string{b.channelURL}, report)
	if err != nil {
		return b.errorResult(err)
	}

	b.status = agent.StatusCompleted
	return agent.Result{
		Success: true,
		Step:    "benchmarker.report",
		Status:  agent.StatusCompleted,
		Data:    map[string]any{"report": report, "cache_key": key},
	}, nil
}

func (b *Benchmarker) collect(ctx context.Context) error {
	videos, err := b.metadata.RecentVideos(ctx, b.channelURL, maxRecentVideos)
	if err != nil {
		return err
	}
	b.videos = videos

	for i, v := range videos {
		if i >= maxThumbnailURLs {
			break
		}
		b.thumbnailURLs = append(b.thumbnailURLs, v.ThumbnailURL)
	}

	for i, v := range videos {
		if i >= maxTranscripts {
			break
		}
		text, err := b.metadata.Transcript(ctx, v.ID, transcriptCharLimit)
		if err != nil {
			continue // a missing transcript narrows script-pattern input, not a collection failure
		}
		b.transcripts = append(b.transcripts, text)
	}

	if b.browser != nil {
		gridURL := strings.TrimSuffix(b.channelURL, "/") + "/videos"
		if shot, err := b.browser.ScreenshotPage(ctx, gridURL); err == nil {
			b.gridShot = shot
		}
		if shots, err := b.browser.ScreenshotElements(ctx, gridURL, "ytd-thumbnail img", maxThumbnailScreenshots); err == nil {
			b.thumbShots = shots
		}
	}

	return nil
}

func (b *Benchmarker) askResult(message string) agent.Result {
	return agent.Result{
		Success:       true,
		Step:          "benchmarker.ask",
		Status:        agent.StatusWaitingFeedback,
		NeedsFeedback: true,
		Message:       message,
	}
}

func (b *Benchmarker) errorResult(err error) (agent.Result, error) {
	b.status = agent.StatusError
	return agent.Result{
		Success:       false,
		Step:          "benchmarker.error",
		Status:        agent.StatusError,
		NeedsFeedback: true,
		Message:       errs.UserSafeMessage(err),
	}, nil
}

// generateStructured runs one LLM call and parses its JSON response,
// returning a nil map and the error on any adapter or parse failure so callers can
// fold in a "(분석 실패: ...)" summary instead of aborting the stage.
func (b *Benchmarker) generateStructured(ctx context.Context, systemPrompt, userPrompt string) (map[string]any, error) {
	text, err := b.llm.Generate(ctx, userPrompt, 0.5, 700, systemPrompt)
	if err != nil {
		return nil, err
	}
	data := jsonx.Extract(text)
	if data == nil {
		return nil, errs.New(errs.ParseError, "benchmarker.generate_structured", "LLM response had no valid JSON payload", nil)
	}
	return data, nil
}

func failSummary(err error) string {
	return fmt.Sprintf("(분석 실패: %s)", errs.UserSafeMessage(err))
}

// analyze runs the five sub-analyses concurrently; each isolates its own
// failure into a "(분석 실패: ...)" summary rather than aborting the
// stage.
func (b *Benchmarker) analyze(ctx context.Context) benchmark.Report {
	var report benchmark.Report
	var group errgroup.Group

	group.Go(func() error {
		report.ThumbnailPattern = b.analyzeThumbnailPattern(ctx)
		return nil
	})
	group.Go(func() error {
		report.ScriptPattern = b.analyzeScriptPattern(ctx)
		return nil
	})
	group.Go(func() error {
		report.ContentStrategy = b.analyzeContentStrategy(ctx)
		return nil
	})
	group.Go(func() error {
		concept, usp, voice := b.analyzeChannelConcept(ctx)
		report.ChannelConcept, report.USP, report.BrandVoice = concept, usp, voice
		return nil
	})
	group.Go(func() error {
		report.AudienceProfile = b.analyzeAudienceProfile(ctx)
		return nil
	})

	_ = group.Wait() // every sub-analysis already converts its own failure into a summary marker
	return report
}

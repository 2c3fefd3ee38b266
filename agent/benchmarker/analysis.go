package benchmarker

import (
	"context"
	"strings"

	"github.com/kadirpekel/studioforge/adapter"
	"github.com/kadirpekel/studioforge/benchmark"
	"github.com/kadirpekel/studioforge/errs"
)

func titleList(videos []adapter.VideoSummary) string {
	titles := make([]string, len(videos))
	for i, v := range videos {
		titles[i] = v.Title
	}
	return strings.Join(titles, "\n")
}

func topVideos(videos []adapter.VideoSummary, n int) []adapter.VideoSummary {
	if len(videos) <= n {
		return videos
	}
	return videos[:n]
}

func stringList(data map[string]any, key string) []string {
	raw, ok := data[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func str(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func (b *Benchmarker) analyzeThumbnailPattern(ctx context.Context) benchmark.ThumbnailPattern {
	if b.gridShot == "" {
		return benchmark.ThumbnailPattern{Summary: failSummary(errs.New(errs.ResourceError, "benchmarker.thumbnail_pattern", "no grid screenshot captured", nil))}
	}

	description, err := b.vision.AnalyzeImage(ctx, b.gridShot,
		"Describe the recurring thumbnail design pattern across this grid of video thumbnails: color palette, text style, facial expressions, layout.")
	if err != nil {
		return benchmark.ThumbnailPattern{Summary: failSummary(err)}
	}

	sys := `You analyze YouTube thumbnail design patterns. Respond with JSON only:
{"color_palette": ["..."], "text_style": "...", "face_expression": "...", "layout_style": "...", "common_elements": ["..."], "summary": "..."}`
	data, err := b.generateStructured(ctx, sys, description)
	if err != nil {
		return benchmark.ThumbnailPattern{Summary: failSummary(err)}
	}
	return benchmark.ThumbnailPattern{
		ColorPalette:   stringList(data, "color_palette"),
		TextStyle:      str(data, "text_style"),
		FaceExpression: str(data, "face_expression"),
		LayoutStyle:    str(data, "layout_style"),
		CommonElements: stringList(data, "common_elements"),
		Summary:        str(data, "summary"),
	}
}

func (b *Benchmarker) analyzeScriptPattern(ctx context.Context) benchmark.ScriptPattern {
	if len(b.transcripts) == 0 {
		return benchmark.ScriptPattern{Summary: failSummary(errs.New(errs.ResourceError, "benchmarker.script_pattern", "no transcripts collected", nil))}
	}
	sys := `You analyze YouTube script patterns from transcripts. Respond with JSON only:
{"hook_style": "...", "structure": "...", "tone_and_voice": "...", "recurring_phrases": ["..."], "cta_patterns": ["..."], "average_length": "...", "summary": "..."}`
	data, err := b.generateStructured(ctx, sys, strings.Join(b.transcripts, "\n---\n"))
	if err != nil {
		return benchmark.ScriptPattern{Summary: failSummary(err)}
	}
	return benchmark.ScriptPattern{
		HookStyle:        str(data, "hook_style"),
		Structure:        str(data, "structure"),
		ToneAndVoice:     str(data, "tone_and_voice"),
		RecurringPhrases: stringList(data, "recurring_phrases"),
		CTAPatterns:      stringList(data, "cta_patterns"),
		AverageLength:    str(data, "average_length"),
		Summary:          str(data, "summary"),
	}
}

func (b *Benchmarker) analyzeContentStrategy(ctx context.Context) benchmark.ContentStrategy {
	if len(b.videos) == 0 {
		return benchmark.ContentStrategy{Summary: failSummary(errs.New(errs.ResourceError, "benchmarker.content_strategy", "no video metadata collected", nil))}
	}
	sys := `You analyze a YouTube channel's content strategy from its recent video titles. Respond with JSON only:
{"content_pillars": ["..."], "upload_frequency": "...", "video_length_pattern": "...", "trending_topics": ["..."], "engagement_tactics": ["..."], "summary": "..."}`
	data, err := b.generateStructured(ctx, sys, titleList(b.videos))
	if err != nil {
		return benchmark.ContentStrategy{Summary: failSummary(err)}
	}
	return benchmark.ContentStrategy{
		ContentPillars:     stringList(data, "content_pillars"),
		UploadFrequency:    str(data, "upload_frequency"),
		VideoLengthPattern: str(data, "video_length_pattern"),
		TrendingTopics:     stringList(data, "trending_topics"),
		EngagementTactics:  stringList(data, "engagement_tactics"),
		Summary:            str(data, "summary"),
	}
}

func (b *Benchmarker) analyzeChannelConcept(ctx context.Context) (concept, usp, brandVoice string) {
	if len(b.videos) == 0 {
		return failSummary(errs.New(errs.ResourceError, "benchmarker.channel_concept", "no videos collected", nil)), "", ""
	}
	sys := `You summarize a YouTube channel's core concept from its top videos. Respond with JSON only:
{"channel_concept": "...", "unique_selling_point": "...", "brand_voice": "..."}`
	data, err := b.generateStructured(ctx, sys, titleList(topVideos(b.videos, 10)))
	if err != nil {
		return failSummary(err), "", ""
	}
	return str(data, "channel_concept"), str(data, "unique_selling_point"), str(data, "brand_voice")
}

func (b *Benchmarker) analyzeAudienceProfile(ctx context.Context) benchmark.AudienceProfile {
	if len(b.videos) == 0 {
		return benchmark.AudienceProfile{Summary: failSummary(errs.New(errs.ResourceError, "benchmarker.audience_profile", "no video titles collected", nil))}
	}
	sys := `You infer the target audience of a YouTube channel from its video titles. Respond with JSON only:
{"demographics": "...", "interests": ["..."], "pain_points": ["..."], "content_preferences": "...", "summary": "..."}`
	data, err := b.generateStructured(ctx, sys, titleList(b.videos))
	if err != nil {
		return benchmark.AudienceProfile{Summary: failSummary(err)}
	}
	return benchmark.AudienceProfile{
		Demographics:       str(data, "demographics"),
		Interests:          stringList(data, "interests"),
		PainPoints:         stringList(data, "pain_points"),
		ContentPreferences: str(data, "content_preferences"),
		Summary:            str(data, "summary"),
	}
}

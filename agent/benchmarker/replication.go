package benchmarker

import (
	"context"

	"github.com/kadirpekel/studioforge/benchmark"
	"github.com/kadirpekel/studioforge/errs"
)

// buildReplicationGuide runs six sequential LLM calls, one per
// subsection; each isolates its own failure to an {"error": "..."}
// payload instead of aborting the remaining subsections.
func (b *Benchmarker) buildReplicationGuide(ctx context.Context) benchmark.ReplicationGuide {
	return benchmark.ReplicationGuide{
		ChannelSetup: b.replicationSection(ctx,
			`Recommend channel setup (name, handle, banner, bio) to replicate this channel's concept. JSON only, free-form keys.`),
		ContentPlanning: b.replicationSection(ctx,
			`Recommend a content planning calendar replicating this channel's strategy. JSON only, free-form keys.`),
		ThumbnailGuide: b.replicationSection(ctx,
			`Recommend a thumbnail design guide replicating the analyzed pattern. JSON only, free-form keys.`),
		ScriptTemplate: b.replicationSection(ctx,
			`Recommend a script template replicating the analyzed hook/structure/CTA pattern. JSON only, free-form keys.`),
		EngagementStrategy: b.replicationSection(ctx,
			`Recommend an audience engagement strategy replicating the analyzed tactics. JSON only, free-form keys.`),
		First10Videos: b.replicationFirstVideos(ctx),
	}
}

func (b *Benchmarker) replicationSection(ctx context.Context, instruction string) map[string]any {
	sys := "You write a replication guide subsection for a content creator. Respond with a single flat JSON object only."
	data, err := b.generateStructured(ctx, sys, instruction)
	if err != nil {
		return map[string]any{"error": failSummary(err)}
	}
	return data
}

func (b *Benchmarker) replicationFirstVideos(ctx context.Context) []string {
	sys := `Recommend 10 first-video ideas for a channel replicating this concept. Respond with JSON only: {"videos": ["..."]}`
	data, err := b.generateStructured(ctx, sys, "Produce 10 first-video ideas.")
	if err != nil {
		return []string{failSummary(err)}
	}
	videos := stringList(data, "videos")
	if videos == nil {
		return []string{failSummary(errs.New(errs.ParseError, "benchmarker.replication_first_videos", "missing 'videos' array", nil))}
	}
	return videos
}

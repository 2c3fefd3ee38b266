package orchestrator

import "github.com/kadirpekel/studioforge/session"

// mergeResult folds one stage's Result.Data into session context. This
// is deliberately NOT a session.Context.Merge(data) pass-through:
// several stages report their output under a key that the rest of the
// pipeline reads back under a different name (a video-idea selection
// reports "ideas", but every later stage reads "video_ideas" off
// context; a voice section map reports "sections" but reads back as
// "voice_sections"), and IMAGE_PROMPT's prompt list needs to be
// wrapped before it lands in context because buildInput later reads
// it back out as a nested map. A flat merge would either miss the
// rename or silently overwrite a same-named key with a shape the next
// stage doesn't expect.
func mergeResult(stage session.Stage, ctx session.Context, data map[string]any) {
	if data == nil {
		return
	}

	switch stage {
	case session.StageChannelName:
		copyKey(ctx, data, "channel_names", session.KeyChannelNames)
		copyKey(ctx, data, "selected_channel_name", session.KeySelectedChannelName)

	case session.StageBenchmarking:
		copyKey(ctx, data, "report", session.KeyBenchmarkReport)

	case session.StageCharacter:
		copyKey(ctx, data, "character_info", session.KeyCharacterInfo)
		copyKey(ctx, data, "character_image", session.KeyCharacterImage)

	case session.StageVideoIdeas:
		copyKey(ctx, data, "ideas", session.KeyVideoIdeas)
		copyKey(ctx, data, "selected_video_idea", session.KeySelectedVideoIdea)

	case session.StageScript:
		copyKey(ctx, data, "script", session.KeyScript)

	case session.StageImagePrompt:
		if prompts, ok := data["prompts"]; ok {
			ctx[session.KeyImagePrompts] = map[string]any{"prompts": prompts}
		}

	case session.StageImageGenerate:
		copyKey(ctx, data, "images", session.KeyGeneratedImages)
		copyKey(ctx, data, "videos", session.KeyGeneratedVideos)
		copyKey(ctx, data, "qc_results", session.KeyQCResults)

	case session.StageVoiceover:
		copyKey(ctx, data, "sections", session.KeyVoiceSections)

	case session.StageCompose:
		copyKey(ctx, data, "final_video", session.KeyFinalVideo)
		copyKey(ctx, data, "subtitle_file", session.KeySubtitleFile)
	}
}

func copyKey(ctx session.Context, data map[string]any, dataKey, ctxKey string) {
	if v, ok := data[dataKey]; ok {
		ctx[ctxKey] = v
	}
}

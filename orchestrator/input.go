package orchestrator

import (
	"strings"

	"github.com/kadirpekel/studioforge/agent"
	"github.com/kadirpekel/studioforge/agent/composer"
	"github.com/kadirpekel/studioforge/agent/imageprompter"
	"github.com/kadirpekel/studioforge/session"
)

// sectionOrder mirrors agent/voice's fixed six-section script shape. It
// is duplicated here (voice keeps its copy unexported) because it names
// a property of the script format itself, not an implementation detail
// of the voice package.
var sectionOrder = []string{"opening", "intro", "body1", "body2", "body3", "conclusion"}

// buildInput assembles the Input for a stage's Execute call: the full
// session context, plus whatever stage-local reshaping that stage's
// agent needs that the context's own storage shape can't supply
// directly. Per the Agent Protocol, Execute runs exactly once per stage
// activation, so this only has to get the entry input right; every
// later turn goes through HandleFeedback with the raw message text.
func buildInput(stage session.Stage, ctx session.Context) agent.Input {
	input := make(agent.Input, len(ctx))
	for k, v := range ctx {
		input[k] = v
	}

	switch stage {
	case session.StageChannelName:
		input["channel_concept"] = ctx.GetStringOr(session.KeyUserRequest, "")

	case session.StageBenchmarking:
		// The entry call fires with no new user text; Benchmarker's own
		// ask-for-url phase prompts the next message.
		input["text"] = ""

	case session.StageCharacter:
		input["character_description"] = ctx.GetStringOr(session.KeyUserRequest, "")
		input["reference_image"] = ctx.GetStringOr(session.KeyCharacterImage, "")

	case session.StageVideoIdeas:
		input["selected_channel_name"] = ctx.GetStringOr(session.KeySelectedChannelName, "")

	case session.StageScript:
		input["selected_video_idea"] = flattenVideoIdea(ctx[session.KeySelectedVideoIdea])

	case session.StageImagePrompt:
		input["script"] = flattenScript(ctx[session.KeyScript])
		input["character_info"] = flattenCharacterInfo(ctx[session.KeyCharacterInfo])

	case session.StageImageGenerate:
		input["prompts"] = scenePromptsFromContext(ctx[session.KeyImagePrompts])

	case session.StageVoiceover:
		// Voice reads input["script"] as the section map directly; no
		// reshaping needed, context already holds it in that form.

	case session.StageCompose:
		input["scenes"] = buildComposerScenes(ctx)
	}

	return input
}

// flattenVideoIdea renders a selected idea (a {title, hook, summary}
// object, generic map[string]any once it's passed through jsonx.Extract)
// into the single string Planner's script prompt expects.
func flattenVideoIdea(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	title := stringField(v, "title")
	hook := stringField(v, "hook")
	summary := stringField(v, "summary")
	parts := make([]string, 0, 3)
	for _, p := range []string{title, hook, summary} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " — ")
}

// flattenScript joins the six named sections into one narrative string
// in canonical order, for ImagePrompter's sentence splitter.
func flattenScript(v any) string {
	sections := asMap(v)
	if sections == nil {
		return ""
	}
	parts := make([]string, 0, len(sectionOrder))
	for _, name := range sectionOrder {
		if s, ok := sections[name].(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// flattenCharacterInfo renders the {style, description} character
// record into the plain string ImagePrompter folds into every scene
// prompt.
func flattenCharacterInfo(v any) string {
	style := stringField(v, "style")
	description := stringField(v, "description")
	switch {
	case style != "" && description != "":
		return style + " style, " + description
	case description != "":
		return description
	default:
		return style
	}
}

// scenePromptsFromContext reconstructs []imageprompter.ScenePrompt from
// context's image_prompts entry, which holds either the concrete slice
// ImagePrompter produced in this same run or the generic
// []interface{}-of-maps shape a session reload leaves behind.
func scenePromptsFromContext(v any) []imageprompter.ScenePrompt {
	wrapper := asMap(v)
	if wrapper == nil {
		return nil
	}
	raw := wrapper["prompts"]

	if typed, ok := raw.([]imageprompter.ScenePrompt); ok {
		return typed
	}

	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]imageprompter.ScenePrompt, 0, len(list))
	for _, item := range list {
		m := asMap(item)
		if m == nil {
			continue
		}
		out = append(out, imageprompter.ScenePrompt{
			ImagePrompt: stringField(item, "image_prompt"),
			VideoPrompt: stringField(item, "video_prompt"),
			Expression:  stringField(item, "expression"),
			Props:       stringSlice(m["props"]),
		})
	}
	return out
}

// buildComposerScenes aligns ImagePrompter/ImageGenerator's per-sentence
// visual scenes against Voice's per-section narration clips. The two
// agents were built independently at different granularities (one scene
// per sentence vs. one synthesized clip per one of six fixed script
// sections), and nothing upstream records which sentences belong to
// which section. Composer needs one video per one audio clip, so this
// reconciles the mismatch by treating the SECTION as the final
// composition unit: for each section, it counts how many sentences that
// section's text split into (the same split ImagePrompter used, so the
// counts line up) and picks the last sentence-scene's video as that
// section's representative clip. A section whose sentences produced no
// video, or with no synthesized audio, contributes no scene.
func buildComposerScenes(ctx session.Context) []composer.Scene {
	sections := asMap(ctx[session.KeyScript])
	if sections == nil {
		return nil
	}
	audioBySection := stringMap(ctx[session.KeyVoiceSections])
	videos := stringSlice(ctx[session.KeyGeneratedVideos])

	scenes := make([]composer.Scene, 0, len(sectionOrder))
	cursor := 0
	for _, name := range sectionOrder {
		text, _ := sections[name].(string)
		if text == "" {
			continue
		}
		count := len(imageprompter.SplitSentences(text))
		lastIdx := cursor + count - 1
		cursor += count

		if count == 0 || lastIdx < 0 || lastIdx >= len(videos) {
			continue
		}
		audio := audioBySection[name]
		if audio == "" {
			continue
		}
		scenes = append(scenes, composer.Scene{
			VideoB64: videos[lastIdx],
			AudioB64: audio,
			Text:     text,
		})
	}
	return scenes
}

package planner

import (
	"fmt"

	"github.com/kadirpekel/studioforge/agent"
)

// DefaultTemplate holds the opaque prompt strings for each mode. The
// content is configuration, not logic; deployments can swap in their own
// Template implementation without touching Planner.
type DefaultTemplate struct{}

func (DefaultTemplate) SystemPrompt(mode Mode) string {
	switch mode {
	case ModeChannelName:
		return "You are a YouTube channel naming expert. Respond with JSON only: " +
			`{"channel_names": ["...", "...", "..."]}`
	case ModeVideoIdeas:
		return "You are a content strategist. Respond with JSON only: " +
			`{"ideas": [{"title": "...", "hook": "...", "summary": "..."}]}`
	case ModeScript:
		return "You are a video scriptwriter. Respond with JSON only: " +
			`{"script": {"opening": "...", "intro": "...", "body1": "...", "body2": "...", "body3": "...", "conclusion": "..."}}`
	default:
		return ""
	}
}

func (DefaultTemplate) UserPrompt(mode Mode, input agent.Input) string {
	feedback, _ := input["feedback"].(string)
	switch mode {
	case ModeChannelName:
		concept, _ := input["channel_concept"].(string)
		p := fmt.Sprintf("Propose 5 channel names for concept: %s", concept)
		if feedback != "" {
			p += fmt.Sprintf("\nPrevious feedback: %s", feedback)
		}
		return p
	case ModeVideoIdeas:
		channel, _ := input["selected_channel_name"].(string)
		p := fmt.Sprintf("Propose 5 video ideas for channel: %s", channel)
		if feedback != "" {
			p += fmt.Sprintf("\nPrevious feedback: %s", feedback)
		}
		return p
	case ModeScript:
		idea, _ := input["selected_video_idea"].(string)
		p := fmt.Sprintf("Write a full script for video idea: %s", idea)
		if feedback != "" {
			p += fmt.Sprintf("\nPrevious feedback: %s", feedback)
		}
		return p
	default:
		return ""
	}
}

// Package character implements the Character agent: concept intake
// (reference image or text description), base generation, and the
// feedback-driven edit loop that follows it.
package character

import (
	"context"
	"fmt"
	"strings"

	"github.com/kadirpekel/studioforge/adapter"
	"github.com/kadirpekel/studioforge/agent"
	"github.com/kadirpekel/studioforge/errs"
	"github.com/kadirpekel/studioforge/progress"
)

// EditType classifies a GENERATION-phase feedback message.
type EditType string

const (
	EditBackgroundRemoval EditType = "background_removal"
	EditRemoveItem        EditType = "remove_item"
	EditHairChange        EditType = "hair_change"
	EditFaceEdit          EditType = "face_edit"
	EditGeneralEdit       EditType = "general_edit"
	EditNone              EditType = "" // plain refinement, no special routing
)

var editKeywords = map[EditType][]string{
	EditBackgroundRemoval: {"배경 제거", "배경 지워", "remove background", "누끼"},
	EditRemoveItem:        {"지워줘", "없애줘", "remove", "delete"},
	EditHairChange:        {"머리", "헤어", "hair"},
	EditFaceEdit:          {"얼굴", "표정", "face", "expression"},
}

// denoiseStrength holds the preset in [0.60, 0.75] per edit type.
var denoiseStrength = map[EditType]float64{
	EditBackgroundRemoval: 0.60,
	EditRemoveItem:        0.65,
	EditHairChange:        0.70,
	EditFaceEdit:          0.75,
	EditGeneralEdit:       0.68,
}

// StyleTransferWeight is the per-art-style strength fed into the
// style-transfer workflow when a reference image is present.
var StyleTransferWeight = map[adapter.ArtStyle]float64{
	adapter.StyleCartoon:      0.75,
	adapter.StyleAnime:        0.85,
	adapter.StyleRealistic:    1.00,
	adapter.Style3D:           0.90,
	adapter.StyleIllustration: 0.80,
	adapter.StylePixel:        0.95,
}

// ClassifyEdit maps free text to one of the edit-type buckets:
// EditGeneralEdit when non-empty text matches no keyword (plain prompt
// refinement), EditNone when the text is blank.
func ClassifyEdit(text string) EditType {
	lower := strings.ToLower(text)
	for _, t := range []EditType{EditBackgroundRemoval, EditRemoveItem, EditHairChange, EditFaceEdit} {
		for _, kw := range editKeywords[t] {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return t
			}
		}
	}
	if strings.TrimSpace(text) == "" {
		return EditNone
	}
	return EditGeneralEdit
}

// WorkflowBuilder constructs the opaque node-graph specs for each
// generation path; the graph shape itself is deployment configuration.
type WorkflowBuilder interface {
	BaseGeneration(prompt string) adapter.WorkflowSpec
	StyleTransfer(prompt string, referenceB64 string, weight float64) adapter.WorkflowSpec
	BackgroundRemoval(imageB64 string) adapter.WorkflowSpec
	ImageEdit(imageB64, instruction string, denoise float64) adapter.WorkflowSpec
}

// Character drives the CONCEPT -> GENERATION phase machine.
type Character struct {
	vision   *adapter.Vision
	workflow *adapter.Workflow
	builder  WorkflowBuilder
	emit     progress.Emitter

	status          agent.Status
	phase           string
	prompt          string
	referenceImage  string
	detectedStyle   adapter.ArtStyle
	currentImageB64 string
}

// New builds a Character agent.
func New(vision *adapter.Vision, workflow *adapter.Workflow, builder WorkflowBuilder, emit progress.Emitter) *Character {
	return &Character{vision: vision, workflow: workflow, builder: builder, emit: emit, status: agent.StatusIdle, phase: "concept"}
}

func (c *Character) StatusNow() agent.Status { return c.status }

// Execute runs the CONCEPT phase: detect style from a reference image (if
// given) or take the text description as-is, then generate a base image.
func (c *Character) Execute(ctx context.Context, input agent.Input) (agent.Result, error) {
	c.status = agent.StatusRunning
	c.emit.Emit("concept", "analyzing character input")

	refB64, _ := input["reference_image"].(string)
	description, _ := input["character_description"].(string)

	if refB64 != "" {
		style, err := c.vision.AnalyzeStyle(ctx, refB64)
		if err != nil {
			return c.errorResult(err)
		}
		c.detectedStyle = style
		c.referenceImage = refB64
	}

	c.prompt = description
	c.phase = "generation"

	var spec adapter.WorkflowSpec
	if c.referenceImage != "" {
		weight := StyleTransferWeight[c.detectedStyle]
		spec = c.builder.StyleTransfer(c.prompt, c.referenceImage, weight)
	} else {
		spec = c.builder.BaseGeneration(c.prompt)
	}

	images, err := c.generate(ctx, spec)
	if err != nil {
		return c.errorResult(err)
	}

	c.status = agent.StatusWaitingFeedback
	return agent.Result{
		Success:       true,
		Step:          "character.generated",
		Status:        agent.StatusWaitingFeedback,
		NeedsFeedback: true,
		Images:        images,
		Data: map[string]any{
			"character_info": map[string]any{
				"style":       string(c.detectedStyle),
				"description": c.prompt,
			},
			"character_image": images[0],
		},
	}, nil
}

// HandleFeedback drives the GENERATION-phase edit loop: classify the
// message, route to the matching workflow, or finish on confirm.
func (c *Character) HandleFeedback(ctx context.Context, text string, images []string) (agent.Result, error) {
	if agent.IsConfirm(text) {
		c.status = agent.StatusCompleted
		return agent.Result{
			Success: true,
			Step:    "character.confirmed",
			Status:  agent.StatusCompleted,
			Images:  []string{c.currentImageB64},
			Data: map[string]any{
				"character_info": map[string]any{
					"style":       string(c.detectedStyle),
					"description": c.prompt,
				},
				"character_image": c.currentImageB64,
			},
		}, nil
	}

	editType := ClassifyEdit(text)
	var spec adapter.WorkflowSpec

	switch editType {
	case EditBackgroundRemoval:
		spec = c.builder.BackgroundRemoval(c.currentImageB64)
	case EditRemoveItem, EditHairChange, EditFaceEdit, EditGeneralEdit:
		spec = c.builder.ImageEdit(c.currentImageB64, text, denoiseStrength[editType])
	case EditNone:
		c.prompt = fmt.Sprintf("%s, refined: %s", c.prompt, text)
		spec = c.builder.BaseGeneration(c.prompt)
	}

	newImages, err := c.generate(ctx, spec)
	if err != nil {
		return c.errorResult(err)
	}

	return agent.Result{
		Success:       true,
		Step:          "character.edited",
		Status:        agent.StatusWaitingFeedback,
		NeedsFeedback: true,
		Images:        newImages,
		Data: map[string]any{
			"character_image": newImages[0],
		},
	}, nil
}

func (c *Character) generate(ctx context.Context, spec adapter.WorkflowSpec) ([]string, error) {
	images, err := c.workflow.Execute(ctx, spec, 0)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, errs.New(errs.InvariantViolation, "character.generate", "workflow returned no images", nil)
	}
	c.currentImageB64 = images[0]
	return images, nil
}

func (c *Character) errorResult(err error) (agent.Result, error) {
	c.status = agent.StatusError
	return agent.Result{
		Success:       false,
		Step:          "character.error",
		Status:        agent.StatusError,
		NeedsFeedback: true,
		Message:       errs.UserSafeMessage(err),
	}, nil
}

package imagegen

import "github.com/kadirpekel/studioforge/adapter"

// DefaultWorkflowBuilder builds node-graph specs for a checkpoint +
// sampler backend with an image-to-video extension node. Node wiring is
// deployment configuration; only the shape submitted is fixed here.
type DefaultWorkflowBuilder struct {
	Checkpoint     string
	VideoModelName string
}

func (b DefaultWorkflowBuilder) BaseGeneration(prompt string) adapter.WorkflowSpec {
	return adapter.WorkflowSpec{
		"checkpoint": {ClassType: "CheckpointLoaderSimple", Inputs: map[string]any{"ckpt_name": b.Checkpoint}},
		"prompt":     {ClassType: "CLIPTextEncode", Inputs: map[string]any{"text": prompt}},
		"sampler":    {ClassType: "KSampler", Inputs: map[string]any{"denoise": 1.0}},
		"save":       {ClassType: "SaveImage", Inputs: map[string]any{}},
	}
}

func (b DefaultWorkflowBuilder) StyleTransfer(prompt, referenceB64 string) adapter.WorkflowSpec {
	return adapter.WorkflowSpec{
		"checkpoint": {ClassType: "CheckpointLoaderSimple", Inputs: map[string]any{"ckpt_name": b.Checkpoint}},
		"reference":  {ClassType: "LoadImage", Inputs: map[string]any{"image_b64": referenceB64}},
		"prompt":     {ClassType: "CLIPTextEncode", Inputs: map[string]any{"text": prompt}},
		"ipadapter":  {ClassType: "IPAdapter", Inputs: map[string]any{"weight": 0.8}},
		"sampler":    {ClassType: "KSampler", Inputs: map[string]any{"denoise": 1.0}},
		"save":       {ClassType: "SaveImage", Inputs: map[string]any{}},
	}
}

func (b DefaultWorkflowBuilder) ImageToVideo(imageB64 string) adapter.WorkflowSpec {
	return adapter.WorkflowSpec{
		"source":   {ClassType: "LoadImage", Inputs: map[string]any{"image_b64": imageB64}},
		"video":    {ClassType: "ImageToVideo", Inputs: map[string]any{"model_name": b.VideoModelName}},
		"savevideo": {ClassType: "SaveVideo", Inputs: map[string]any{}},
	}
}

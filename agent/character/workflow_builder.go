package character

import "github.com/kadirpekel/studioforge/adapter"

// DefaultWorkflowBuilder builds the node-graph specs for a text-to-image
// backend exposing the usual checkpoint-loader / sampler / save-image
// node classes. Node wiring is deployment configuration; only the shape
// of what gets submitted is fixed here.
type DefaultWorkflowBuilder struct {
	Checkpoint string
}

func (b DefaultWorkflowBuilder) BaseGeneration(prompt string) adapter.WorkflowSpec {
	return adapter.WorkflowSpec{
		"checkpoint": {ClassType: "CheckpointLoaderSimple", Inputs: map[string]any{"ckpt_name": b.Checkpoint}},
		"prompt":     {ClassType: "CLIPTextEncode", Inputs: map[string]any{"text": prompt}},
		"sampler":    {ClassType: "KSampler", Inputs: map[string]any{"denoise": 1.0}},
		"save":       {ClassType: "SaveImage", Inputs: map[string]any{}},
	}
}

func (b DefaultWorkflowBuilder) StyleTransfer(prompt, referenceB64 string, weight float64) adapter.WorkflowSpec {
	return adapter.WorkflowSpec{
		"checkpoint": {ClassType: "CheckpointLoaderSimple", Inputs: map[string]any{"ckpt_name": b.Checkpoint}},
		"reference":  {ClassType: "LoadImage", Inputs: map[string]any{"image_b64": referenceB64}},
		"prompt":     {ClassType: "CLIPTextEncode", Inputs: map[string]any{"text": prompt}},
		"ipadapter":  {ClassType: "IPAdapter", Inputs: map[string]any{"weight": weight}},
		"sampler":    {ClassType: "KSampler", Inputs: map[string]any{"denoise": 1.0}},
		"save":       {ClassType: "SaveImage", Inputs: map[string]any{}},
	}
}

func (b DefaultWorkflowBuilder) BackgroundRemoval(imageB64 string) adapter.WorkflowSpec {
	return adapter.WorkflowSpec{
		"source": {ClassType: "LoadImage", Inputs: map[string]any{"image_b64": imageB64}},
		"rembg":  {ClassType: "RemoveBackground", Inputs: map[string]any{}},
		"save":   {ClassType: "SaveImage", Inputs: map[string]any{}},
	}
}

func (b DefaultWorkflowBuilder) ImageEdit(imageB64, instruction string, denoise float64) adapter.WorkflowSpec {
	return adapter.WorkflowSpec{
		"source":  {ClassType: "LoadImage", Inputs: map[string]any{"image_b64": imageB64}},
		"prompt":  {ClassType: "CLIPTextEncode", Inputs: map[string]any{"text": instruction}},
		"sampler": {ClassType: "KSampler", Inputs: map[string]any{"denoise": denoise}},
		"save":    {ClassType: "SaveImage", Inputs: map[string]any{}},
	}
}

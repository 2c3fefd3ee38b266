// Package imagegen implements the ImageGenerator agent: first-image
// generation, style-transferred follow-on images for character
// consistency, optional video generation, and an optional quality-check
// regeneration loop, all with an integrated QualityChecker evaluation.
package imagegen

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/studioforge/adapter"
	"github.com/kadirpekel/studioforge/agent"
	"github.com/kadirpekel/studioforge/agent/imageprompter"
	"github.com/kadirpekel/studioforge/errs"
	"github.com/kadirpekel/studioforge/progress"
)

// FramesPerQualityCheck is K in the QC loop: the number of frames
// extracted from each candidate video for vision evaluation.
const FramesPerQualityCheck = 4

// FrameExtractor pulls evenly-spaced frames out of a video for QC.
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, videoB64 string, count int) ([]string, error)
}

// WorkflowBuilder constructs the node-graph specs for each generation
// step; the graph shape is deployment configuration.
type WorkflowBuilder interface {
	BaseGeneration(prompt string) adapter.WorkflowSpec
	StyleTransfer(prompt, referenceB64 string) adapter.WorkflowSpec
	ImageToVideo(imageB64 string) adapter.WorkflowSpec
}

// SceneResult is the per-scene outcome reported to the client.
type SceneResult struct {
	Image             string `json:"image"`
	Video             string `json:"video,omitempty"`
	QCVerdict         string `json:"qc_verdict,omitempty"`
	QCScore           int    `json:"qc_score,omitempty"`
	RegenerationCount int    `json:"regeneration_count"`
}

// Options configures which of the optional stages run.
type Options struct {
	EnableVideo      bool
	EnableQC         bool
	MaxRegenerations int // default 2 when zero
}

// ImageGenerator drives GENERATING -> REVIEW across every scene.
type ImageGenerator struct {
	workflow *adapter.Workflow
	vision   *adapter.Vision
	frames   FrameExtractor
	builder  WorkflowBuilder
	opts     Options
	emit     progress.Emitter

	status         agent.Status
	prompts        []imageprompter.ScenePrompt
	scenes         []SceneResult
	referenceImage string
}

// New builds an ImageGenerator agent.
func New(workflow *adapter.Workflow, vision *adapter.Vision, frames FrameExtractor, builder WorkflowBuilder, opts Options, emit progress.Emitter) *ImageGenerator {
	if opts.MaxRegenerations <= 0 {
		opts.MaxRegenerations = 2
	}
	return &ImageGenerator{workflow: workflow, vision: vision, frames: frames, builder: builder, opts: opts, emit: emit, status: agent.StatusIdle}
}

func (g *ImageGenerator) StatusNow() agent.Status { return g.status }

func (g *ImageGenerator) Execute(ctx context.Context, input agent.Input) (agent.Result, error) {
	g.status = agent.StatusRunning

	prompts, ok := input["prompts"].([]imageprompter.ScenePrompt)
	if !ok || len(prompts) == 0 {
		g.status = agent.StatusError
		return g.errorResult(errs.New(errs.UserInputError, "imagegen.execute", "no scene prompts supplied", nil))
	}
	g.prompts = prompts
	g.scenes = make([]SceneResult, len(prompts))

	for i := range prompts {
		if err := g.generateImage(ctx, i); err != nil {
			g.status = agent.StatusError
			return g.errorResult(err)
		}
		g.emit.Emit("generating", fmt.Sprintf("image %d/%d", i+1, len(prompts)))
	}

	if g.opts.EnableVideo {
		if err := g.generateAllVideos(ctx); err != nil {
			g.status = agent.StatusError
			return g.errorResult(err)
		}
	}

	g.status = agent.StatusWaitingFeedback
	return g.reviewResult(), nil
}

// generateImage produces scene i's image: text-to-image for the first
// scene, style-transfer against the first image for every later scene so
// character identity stays consistent.
func (g *ImageGenerator) generateImage(ctx context.Context, i int) error {
	var spec adapter.WorkflowSpec
	if i == 0 {
		spec = g.builder.BaseGeneration(g.prompts[i].ImagePrompt)
	} else {
		spec = g.builder.StyleTransfer(g.prompts[i].ImagePrompt, g.referenceImage)
	}
	images, err := g.workflow.Execute(ctx, spec, 0)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return errs.New(errs.InvariantViolation, "imagegen.generate_image", "workflow returned no images", nil)
	}
	g.scenes[i].Image = images[0]
	if i == 0 {
		g.referenceImage = images[0]
	}
	return nil
}

// generateAllVideos runs image-to-video and the optional QC loop for
// every scene concurrently, bounded by errgroup so one scene's failure
// does not silently drop the others' results.
func (g *ImageGenerator) generateAllVideos(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)
	for i := range g.scenes {
		i := i
		group.Go(func() error {
			return g.generateSceneVideo(groupCtx, i)
		})
	}
	return group.Wait()
}

func (g *ImageGenerator) generateSceneVideo(ctx context.Context, i int) error {
	video, err := g.renderVideo(ctx, g.scenes[i].Image)
	if err != nil {
		return err
	}
	g.scenes[i].Video = video

	if !g.opts.EnableQC {
		return nil
	}

	for attempt := 0; ; attempt++ {
		verdict, score, err := g.checkQuality(ctx, video)
		if err != nil {
			return err
		}
		g.scenes[i].QCVerdict = verdict
		g.scenes[i].QCScore = score
		g.scenes[i].RegenerationCount = attempt

		if verdict == "PASS" || attempt >= g.opts.MaxRegenerations {
			return nil
		}
		video, err = g.renderVideo(ctx, g.scenes[i].Image)
		if err != nil {
			return err
		}
		g.scenes[i].Video = video
	}
}

func (g *ImageGenerator) renderVideo(ctx context.Context, imageB64 string) (string, error) {
	spec := g.builder.ImageToVideo(imageB64)
	outputs, err := g.workflow.Execute(ctx, spec, 0)
	if err != nil {
		return "", err
	}
	if len(outputs) == 0 {
		return "", errs.New(errs.InvariantViolation, "imagegen.render_video", "workflow returned no video", nil)
	}
	return outputs[0], nil
}

func (g *ImageGenerator) checkQuality(ctx context.Context, videoB64 string) (string, int, error) {
	frames, err := g.frames.ExtractFrames(ctx, videoB64, FramesPerQualityCheck)
	if err != nil {
		return "", 0, err
	}
	result, err := g.vision.QualityCheck(ctx, g.referenceImage, frames, true)
	if err != nil {
		return "", 0, err
	}
	return result.Verdict, result.Score, nil
}

// HandleFeedback accepts confirm (finish) or "N번 다시" to regenerate one
// scene's image, video, and QC result.
func (g *ImageGenerator) HandleFeedback(ctx context.Context, text string, images []string) (agent.Result, error) {
	if agent.IsConfirm(text) {
		g.status = agent.StatusCompleted
		return agent.Result{
			Success: true,
			Step:    "imagegen.confirmed",
			Status:  agent.StatusCompleted,
			Data:    g.resultData(),
		}, nil
	}

	n, ok := parseRegenerateScene(text)
	if !ok || n < 1 || n > len(g.scenes) {
		return g.errorResult(errs.New(errs.UserInputError, "imagegen.handle_feedback", "'확인' 또는 'N번 다시' 형식으로 입력해주세요", nil))
	}

	i := n - 1
	if err := g.generateImage(ctx, i); err != nil {
		return g.errorResult(err)
	}
	if g.opts.EnableVideo {
		g.scenes[i].RegenerationCount = 0
		if err := g.generateSceneVideo(ctx, i); err != nil {
			return g.errorResult(err)
		}
	}

	return g.reviewResult(), nil
}

var regenerateScenePattern = regexp.MustCompile(`^(\d+)번\s*다시`)

// parseRegenerateScene matches "N번 다시" and returns N.
func parseRegenerateScene(text string) (int, bool) {
	m := regenerateScenePattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func (g *ImageGenerator) resultData() map[string]any {
	images := make([]string, len(g.scenes))
	videos := make([]string, 0, len(g.scenes))
	qc := make([]SceneResult, len(g.scenes))
	for i, s := range g.scenes {
		images[i] = s.Image
		if s.Video != "" {
			videos = append(videos, s.Video)
		}
		qc[i] = s
	}
	return map[string]any{"images": images, "videos": videos, "qc_results": qc}
}

func (g *ImageGenerator) reviewResult() agent.Result {
	return agent.Result{
		Success:       true,
		Step:          "imagegen.review",
		Status:        agent.StatusWaitingFeedback,
		NeedsFeedback: true,
		Data:          g.resultData(),
	}
}

func (g *ImageGenerator) errorResult(err error) (agent.Result, error) {
	return agent.Result{
		Success:       false,
		Step:          "imagegen.error",
		Status:        agent.StatusError,
		NeedsFeedback: true,
		Message:       errs.UserSafeMessage(err),
	}, nil
}

// Package qualitycheck implements the standalone QualityChecker: local
// pixel-statistics, strict vision-model, and cloud-vision evaluation
// modes behind one uniform output shape. ImageGenerator's integrated QC
// loop calls the vision adapter directly for its tighter pass/fail
// decision; this package is for callers that want the full
// scored/annotated report, or that run without a generation backend at
// all (local mode).
package qualitycheck

import (
	"context"
	_ "image/jpeg"
	_ "image/png"

	"github.com/kadirpekel/studioforge/adapter"
	"github.com/kadirpekel/studioforge/errs"
)

// Mode selects which backend produces the evaluation.
type Mode string

const (
	ModeLocal        Mode = "local"
	ModeVisionStrict Mode = "vision_strict"
	ModeCloud        Mode = "cloud"
)

// VisionChecker is satisfied by *adapter.Vision; cloud mode is just a
// second instance pointed at a cloud vision endpoint, since the
// reference+frames+strict request/response shape is identical.
type VisionChecker interface {
	QualityCheck(ctx context.Context, referenceB64 string, frames []string, strict bool) (adapter.QualityVerdict, error)
}

// Result is the uniform report shape across all three modes.
type Result struct {
	OverallScore float64            `json:"overall_score"`
	SubScores    map[string]float64 `json:"sub_scores"`
	Issues       []string           `json:"issues"`
	Suggestions  []string           `json:"suggestions"`
	Summary      string             `json:"summary"`
	Verdict      string             `json:"verdict,omitempty"`
}

// Checker dispatches to whichever backend Mode selects.
type Checker struct {
	visionStrict VisionChecker
	cloud        VisionChecker
	sampler      FrameSampler
}

// New builds a Checker. Any dependency may be nil if its mode is never
// requested by callers.
func New(visionStrict, cloud VisionChecker, sampler FrameSampler) *Checker {
	return &Checker{visionStrict: visionStrict, cloud: cloud, sampler: sampler}
}

// CheckImage evaluates a single image against referenceB64.
func (c *Checker) CheckImage(ctx context.Context, mode Mode, referenceB64, imageB64 string) (Result, error) {
	switch mode {
	case ModeLocal:
		return localImageResult(imageB64)
	case ModeVisionStrict:
		return c.visionResult(ctx, c.visionStrict, referenceB64, []string{imageB64})
	case ModeCloud:
		return c.visionResult(ctx, c.cloud, referenceB64, []string{imageB64})
	default:
		return Result{}, errs.New(errs.UserInputError, "qualitycheck.check_image", "unknown mode: "+string(mode), nil)
	}
}

// CheckVideo evaluates a video against referenceB64. Vision modes sample
// 3 frames; local mode samples every 8th frame capped at 5.
func (c *Checker) CheckVideo(ctx context.Context, mode Mode, referenceB64, videoB64 string) (Result, error) {
	switch mode {
	case ModeLocal:
		frames, err := c.sampler.SampleFrames(ctx, videoB64, 8, 5)
		if err != nil {
			return Result{}, err
		}
		return localVideoResult(frames)
	case ModeVisionStrict:
		frames, err := c.sampleBase64(ctx, videoB64, 1, 3)
		if err != nil {
			return Result{}, err
		}
		return c.visionResult(ctx, c.visionStrict, referenceB64, frames)
	case ModeCloud:
		frames, err := c.sampleBase64(ctx, videoB64, 1, 3)
		if err != nil {
			return Result{}, err
		}
		return c.visionResult(ctx, c.cloud, referenceB64, frames)
	default:
		return Result{}, errs.New(errs.UserInputError, "qualitycheck.check_video", "unknown mode: "+string(mode), nil)
	}
}

func (c *Checker) visionResult(ctx context.Context, checker VisionChecker, referenceB64 string, frames []string) (Result, error) {
	if checker == nil {
		return Result{}, errs.New(errs.InvariantViolation, "qualitycheck.vision_result", "no vision backend configured for this mode", nil)
	}
	verdict, err := checker.QualityCheck(ctx, referenceB64, frames, true)
	if err != nil {
		return Result{}, err
	}
	result := Result{
		OverallScore: float64(verdict.Score),
		SubScores:    map[string]float64{"character_identity": float64(verdict.Score)},
		Verdict:      verdict.Verdict,
	}
	if verdict.Verdict == "FAIL" {
		result.Issues = append(result.Issues, "character identity drifted from the reference")
		result.Suggestions = append(result.Suggestions, "regenerate with a stronger style-transfer weight")
	}
	result.Summary = summarize(result)
	return result, nil
}

func summarize(r Result) string {
	if r.Verdict != "" {
		return r.Verdict + ": overall score " + formatScore(r.OverallScore)
	}
	return "overall score " + formatScore(r.OverallScore)
}

package qualitycheck

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"math"

	"github.com/kadirpekel/studioforge/errs"
)

const (
	whiteChannelThreshold = 240
	blackChannelThreshold = 30
)

type imageStats struct {
	whiteRatio float64
	blackRatio float64
	stdDev     float64
	width      int
	height     int
	meanR      float64
	meanG      float64
	meanB      float64
}

func decodeImageB64(b64 string) (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, errs.New(errs.ParseError, "qualitycheck.decode_image", "invalid base64 payload", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errs.New(errs.ParseError, "qualitycheck.decode_image", "unrecognized image format", err)
	}
	return img, nil
}

// computeImageStats walks every pixel once, tallying the white/black
// channel-saturation ratios and the per-channel mean used for std
// deviation and cross-frame drift.
func computeImageStats(img image.Image) imageStats {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	total := width * height
	if total == 0 {
		return imageStats{width: width, height: height}
	}

	var white, black int
	var sumR, sumG, sumB float64
	var sumSq float64

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			r8, g8, b8 := r>>8, g>>8, b>>8

			if r8 > whiteChannelThreshold && g8 > whiteChannelThreshold && b8 > whiteChannelThreshold {
				white++
			}
			if r8 < blackChannelThreshold && g8 < blackChannelThreshold && b8 < blackChannelThreshold {
				black++
			}

			sumR += float64(r8)
			sumG += float64(g8)
			sumB += float64(b8)
			luminance := 0.299*float64(r8) + 0.587*float64(g8) + 0.114*float64(b8)
			sumSq += luminance * luminance
		}
	}

	n := float64(total)
	meanR, meanG, meanB := sumR/n, sumG/n, sumB/n
	meanLuminance := 0.299*meanR + 0.587*meanG + 0.114*meanB
	variance := sumSq/n - meanLuminance*meanLuminance
	if variance < 0 {
		variance = 0
	}

	return imageStats{
		whiteRatio: float64(white) / n,
		blackRatio: float64(black) / n,
		stdDev:     math.Sqrt(variance),
		width:      width,
		height:     height,
		meanR:      meanR,
		meanG:      meanG,
		meanB:      meanB,
	}
}

func localImageResult(imageB64 string) (Result, error) {
	img, err := decodeImageB64(imageB64)
	if err != nil {
		return Result{}, err
	}
	stats := computeImageStats(img)
	return resultFromStats(stats), nil
}

func localVideoResult(frames [][]byte) (Result, error) {
	if len(frames) == 0 {
		return Result{}, errs.New(errs.UserInputError, "qualitycheck.check_video", "no sampled frames to evaluate", nil)
	}

	var allStats []imageStats
	for _, raw := range frames {
		img, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return Result{}, errs.New(errs.ParseError, "qualitycheck.check_video", "decoding sampled frame", err)
		}
		allStats = append(allStats, computeImageStats(img))
	}

	whiteMean, whiteVar := meanAndVariance(whiteRatios(allStats))
	drift := interFrameDrift(allStats)

	result := resultFromStats(allStats[0])
	result.SubScores["white_ratio_mean"] = whiteMean
	result.SubScores["white_ratio_variance"] = whiteVar
	result.SubScores["inter_frame_drift"] = drift
	if drift > 40 {
		result.Issues = append(result.Issues, "large color shift between sampled frames")
		result.Suggestions = append(result.Suggestions, "check for a flash-cut or failed interpolation mid-clip")
	}
	result.Summary = summarize(result)
	return result, nil
}

func whiteRatios(stats []imageStats) []float64 {
	out := make([]float64, len(stats))
	for i, s := range stats {
		out[i] = s.whiteRatio
	}
	return out
}

func meanAndVariance(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return mean, sumSq / float64(len(values))
}

func interFrameDrift(stats []imageStats) float64 {
	if len(stats) < 2 {
		return 0
	}
	var total float64
	for i := 1; i < len(stats); i++ {
		prev, cur := stats[i-1], stats[i]
		total += math.Abs(cur.meanR-prev.meanR) + math.Abs(cur.meanG-prev.meanG) + math.Abs(cur.meanB-prev.meanB)
	}
	return total / float64(len(stats)-1)
}

func resultFromStats(s imageStats) Result {
	overexposed := clampScore(10 - s.whiteRatio*20)
	underexposed := clampScore(10 - s.blackRatio*20)
	contrast := clampScore(s.stdDev / 6)

	subScores := map[string]float64{
		"exposure_balance": (overexposed + underexposed) / 2,
		"contrast":         contrast,
	}
	overall := (overexposed + underexposed + contrast) / 3

	var issues, suggestions []string
	if s.whiteRatio > 0.5 {
		issues = append(issues, "image is mostly blown-out highlights")
		suggestions = append(suggestions, "lower exposure or regenerate with a different seed")
	}
	if s.blackRatio > 0.5 {
		issues = append(issues, "image is mostly crushed shadows")
		suggestions = append(suggestions, "raise exposure or check for a failed render")
	}
	if s.stdDev < 8 {
		issues = append(issues, "low color variance, image may be flat or blank")
	}

	result := Result{
		OverallScore: overall,
		SubScores:    subScores,
		Issues:       issues,
		Suggestions:  suggestions,
	}
	result.Summary = summarize(result)
	return result
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

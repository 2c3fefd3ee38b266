package qualitycheck

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/studioforge/adapter"
)

func solidImageB64(t *testing.T, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func solidImagePNG(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fakeVisionChecker struct {
	verdict adapter.QualityVerdict
	err     error
}

func (f fakeVisionChecker) QualityCheck(ctx context.Context, referenceB64 string, frames []string, strict bool) (adapter.QualityVerdict, error) {
	return f.verdict, f.err
}

type fakeSampler struct{ frames [][]byte }

func (f fakeSampler) SampleFrames(ctx context.Context, videoB64 string, stride, maxFrames int) ([][]byte, error) {
	if len(f.frames) > maxFrames {
		return f.frames[:maxFrames], nil
	}
	return f.frames, nil
}

func TestCheckImage_Local_DetectsOverexposure(t *testing.T) {
	c := New(nil, nil, nil)
	white := solidImageB64(t, color.RGBA{R: 250, G: 250, B: 250, A: 255})

	result, err := c.CheckImage(context.Background(), ModeLocal, "", white)
	require.NoError(t, err)
	assert.Contains(t, result.Issues, "image is mostly blown-out highlights")
}

func TestCheckImage_Local_DetectsUnderexposure(t *testing.T) {
	c := New(nil, nil, nil)
	black := solidImageB64(t, color.RGBA{R: 5, G: 5, B: 5, A: 255})

	result, err := c.CheckImage(context.Background(), ModeLocal, "", black)
	require.NoError(t, err)
	assert.Contains(t, result.Issues, "image is mostly crushed shadows")
}

func TestCheckImage_Local_BalancedImageHasNoIssues(t *testing.T) {
	c := New(nil, nil, nil)
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	b64 := base64.StdEncoding.EncodeToString(buf.Bytes())

	result, err := c.CheckImage(context.Background(), ModeLocal, "", b64)
	require.NoError(t, err)
	assert.Empty(t, result.Issues)
	assert.Greater(t, result.OverallScore, 0.0)
}

func TestCheckImage_VisionStrict_PassesThroughVerdict(t *testing.T) {
	c := New(fakeVisionChecker{verdict: adapter.QualityVerdict{Score: 9, Verdict: "PASS"}}, nil, nil)

	result, err := c.CheckImage(context.Background(), ModeVisionStrict, "ref", "img")
	require.NoError(t, err)
	assert.Equal(t, "PASS", result.Verdict)
	assert.Equal(t, 9.0, result.OverallScore)
}

func TestCheckImage_VisionStrict_FailAddsIssue(t *testing.T) {
	c := New(fakeVisionChecker{verdict: adapter.QualityVerdict{Score: 3, Verdict: "FAIL"}}, nil, nil)

	result, err := c.CheckImage(context.Background(), ModeVisionStrict, "ref", "img")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Issues)
}

func TestCheckImage_Cloud_UsesCloudBackend(t *testing.T) {
	c := New(nil, fakeVisionChecker{verdict: adapter.QualityVerdict{Score: 7, Verdict: "PASS"}}, nil)

	result, err := c.CheckImage(context.Background(), ModeCloud, "ref", "img")
	require.NoError(t, err)
	assert.Equal(t, 7.0, result.OverallScore)
}

func TestCheckImage_Cloud_WithoutBackendIsInvariantError(t *testing.T) {
	c := New(nil, nil, nil)

	_, err := c.CheckImage(context.Background(), ModeCloud, "ref", "img")
	assert.Error(t, err)
}

func TestCheckVideo_Local_AggregatesAcrossFrames(t *testing.T) {
	frames := [][]byte{
		solidImagePNG(t, color.RGBA{R: 100, G: 100, B: 100, A: 255}),
		solidImagePNG(t, color.RGBA{R: 105, G: 100, B: 100, A: 255}),
		solidImagePNG(t, color.RGBA{R: 250, G: 250, B: 250, A: 255}),
	}
	c := New(nil, nil, fakeSampler{frames: frames})

	result, err := c.CheckVideo(context.Background(), ModeLocal, "", "video")
	require.NoError(t, err)
	assert.Contains(t, result.SubScores, "white_ratio_mean")
	assert.Contains(t, result.SubScores, "inter_frame_drift")
}

func TestCheckVideo_VisionStrict_SamplesThreeFrames(t *testing.T) {
	frames := [][]byte{
		solidImagePNG(t, color.RGBA{R: 1, G: 1, B: 1, A: 255}),
		solidImagePNG(t, color.RGBA{R: 2, G: 2, B: 2, A: 255}),
		solidImagePNG(t, color.RGBA{R: 3, G: 3, B: 3, A: 255}),
	}
	c := New(fakeVisionChecker{verdict: adapter.QualityVerdict{Score: 8, Verdict: "PASS"}}, nil, fakeSampler{frames: frames})

	result, err := c.CheckVideo(context.Background(), ModeVisionStrict, "ref", "video")
	require.NoError(t, err)
	assert.Equal(t, "PASS", result.Verdict)
}

func TestCheckImage_UnknownModeIsUserError(t *testing.T) {
	c := New(nil, nil, nil)
	_, err := c.CheckImage(context.Background(), Mode("bogus"), "ref", "img")
	assert.Error(t, err)
}

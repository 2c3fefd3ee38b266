package qualitycheck

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kadirpekel/studioforge/adapter"
	"github.com/kadirpekel/studioforge/errs"
)

// FrameSampler pulls raw (encoded, e.g. PNG) frame bytes out of a video.
// stride selects every Nth frame; maxFrames caps the result.
type FrameSampler interface {
	SampleFrames(ctx context.Context, videoB64 string, stride, maxFrames int) ([][]byte, error)
}

// SubprocessFrameSampler decodes the base64 video to a scratch file and
// extracts frames with ffmpeg's select filter.
type SubprocessFrameSampler struct {
	Subprocess  *adapter.Subprocess
	ScratchBase string
	FFmpegPath  string
}

func (s SubprocessFrameSampler) SampleFrames(ctx context.Context, videoB64 string, stride, maxFrames int) ([][]byte, error) {
	dir, cleanup, err := adapter.ScratchDir(s.ScratchBase, "qcsample")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	raw, err := base64.StdEncoding.DecodeString(videoB64)
	if err != nil {
		return nil, errs.New(errs.ParseError, "qualitycheck.sample_frames", "decoding video payload", err)
	}
	videoPath := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(videoPath, raw, 0o600); err != nil {
		return nil, errs.New(errs.ResourceError, "qualitycheck.sample_frames", "writing scratch video", err)
	}

	pattern := filepath.Join(dir, "sample_%03d.png")
	selectExpr := fmt.Sprintf("select='not(mod(n\\,%d))'", stride)
	argv := []string{s.FFmpegPath, "-i", videoPath, "-vf", selectExpr, "-vsync", "vfr", pattern}
	if _, err := s.Subprocess.Run(ctx, argv, dir, 0); err != nil {
		return nil, err
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "sample_*.png"))
	sort.Strings(matches)
	if len(matches) > maxFrames {
		matches = matches[:maxFrames]
	}

	frames := make([][]byte, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.New(errs.ResourceError, "qualitycheck.sample_frames", "reading sampled frame", err)
		}
		frames = append(frames, data)
	}
	return frames, nil
}

// sampleBase64 samples frames and base64-encodes them for the vision
// backends, which speak base64 payloads rather than raw bytes.
func (c *Checker) sampleBase64(ctx context.Context, videoB64 string, stride, maxFrames int) ([]string, error) {
	frames, err := c.sampler.SampleFrames(ctx, videoB64, stride, maxFrames)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = base64.StdEncoding.EncodeToString(f)
	}
	return out, nil
}

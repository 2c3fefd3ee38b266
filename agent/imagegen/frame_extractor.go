package imagegen

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

// SubprocessFrameExtractor decodes a base64 video to a scratch file and
// pulls evenly-spaced frames out of it with ffmpeg's select filter.
type SubprocessFrameExtractor struct {
	Subprocess  *adapter.Subprocess
	ScratchBase string
	FFmpegPath  string
}

func (e SubprocessFrameExtractor) ExtractFrames(ctx context.Context, videoB64 string, count int) ([]string, error) {
	dir, cleanup, err := adapter.ScratchDir(e.ScratchBase, "qcframes")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	raw, err := base64.StdEncoding.DecodeString(videoB64)
	if err != nil {
		return nil, errs.New(errs.ParseError, "imagegen.extract_frames", "decoding video payload", err)
	}
	videoPath := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(videoPath, raw, 0o600); err != nil {
		return nil, errs.New(errs.ResourceError, "imagegen.extract_frames", "writing scratch video", err)
	}

	pattern := filepath.Join(dir, "frame_%03d.png")
	selectExpr := fmt.Sprintf("select='not(mod(n\\,%d))'", count)
	argv := []string{e.FFmpegPath, "-i", videoPath, "-vf", selectExpr, "-vsync", "vfr", pattern}
	if _, err := e.Subprocess.Run(ctx, argv, dir, 0); err != nil {
		return nil, err
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "frame_*.png"))
	sort.Strings(matches)
	if len(matches) > count {
		matches = matches[:count]
	}

	frames := make([]string, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.New(errs.ResourceError, "imagegen.extract_frames", "reading extracted frame", err)
		}
		frames = append(frames, base64.StdEncoding.EncodeToString(data))
	}
	return frames, nil
}

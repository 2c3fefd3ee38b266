package voice

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"

	"github.com/kadirpekel/studioforge/adapter"
	"github.com/kadirpekel/studioforge/errs"
)

// SubprocessYouTubeExtractor downloads the audio-only stream for a URL
// and trims it to the requested window with the configured media
// subprocess tools, returning the segment as base64 plus its VTT
// subtitle text when available.
type SubprocessYouTubeExtractor struct {
	Subprocess  *adapter.Subprocess
	ScratchBase string
	YTDLPPath   string
	FFmpegPath  string
}

func (e SubprocessYouTubeExtractor) ExtractSegment(ctx context.Context, url, startMMSS, endMMSS string) (string, string, error) {
	dir, cleanup, err := adapter.ScratchDir(e.ScratchBase, "voiceclone")
	if err != nil {
		return "", "", err
	}
	defer cleanup()

	audioPath := filepath.Join(dir, "audio.m4a")
	if _, err := e.Subprocess.Run(ctx, []string{e.YTDLPPath, "-x", "--audio-format", "m4a", "-o", audioPath, url}, dir, 0); err != nil {
		return "", "", err
	}

	trimmedPath := filepath.Join(dir, "segment.m4a")
	if _, err := e.Subprocess.Run(ctx, []string{e.FFmpegPath, "-i", audioPath, "-ss", startMMSS, "-to", endMMSS, "-c", "copy", trimmedPath}, dir, 0); err != nil {
		return "", "", err
	}

	raw, err := os.ReadFile(trimmedPath)
	if err != nil {
		return "", "", errs.New(errs.ResourceError, "voice.extract_segment", "reading trimmed segment", err)
	}

	transcript := e.fetchTranscript(ctx, url, dir)
	return base64.StdEncoding.EncodeToString(raw), transcript, nil
}

func (e SubprocessYouTubeExtractor) fetchTranscript(ctx context.Context, url, dir string) string {
	subPath := filepath.Join(dir, "sub.%(ext)s")
	if _, err := e.Subprocess.Run(ctx, []string{e.YTDLPPath, "--write-auto-sub", "--sub-format", "vtt", "--skip-download", "-o", subPath, url}, dir, 0); err != nil {
		return ""
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "sub.*.vtt"))
	if len(matches) == 0 {
		return ""
	}
	raw, err := os.ReadFile(matches[0])
	if err != nil {
		return ""
	}
	return string(raw)
}

// Package composer implements the Composer agent: the terminal COMPOSE
// stage that reconciles each scene's video against its narration audio,
// builds a subtitle track, and muxes everything into one finished
// output. Unlike the other stage agents it has no review phase: Execute
// runs the whole pipeline and lands on COMPLETED or ERROR directly.
package composer

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kadirpekel/studioforge/adapter"
	"github.com/kadirpekel/studioforge/agent"
	"github.com/kadirpekel/studioforge/errs"
	"github.com/kadirpekel/studioforge/progress"
)

// Scene is one per-scene composition unit: a rendered video clip, its
// matching narration audio, and the narration text for the subtitle
// track. Callers are responsible for aligning scenes to a common
// per-scene granularity before invoking Execute.
type Scene struct {
	VideoB64 string
	AudioB64 string
	Text     string
}

// Composer drives the non-interactive COMPOSE stage.
type Composer struct {
	subprocess  *adapter.Subprocess
	scratchBase string
	ffmpegPath  string
	ffprobePath string
	burnIn      bool
	outputDir   string
	emit        progress.Emitter

	status agent.Status
}

// New builds a Composer. burnIn selects whether the subtitle track is
// baked into the video (true) or attached as a soft stream (false).
// outputDir is the per-session "video" directory the finished output and
// its subtitle file are persisted to; an empty outputDir skips
// persistence.
func New(subprocess *adapter.Subprocess, scratchBase, ffmpegPath, ffprobePath string, burnIn bool, outputDir string, emit progress.Emitter) *Composer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Composer{
		subprocess:  subprocess,
		scratchBase: scratchBase,
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		burnIn:      burnIn,
		outputDir:   outputDir,
		emit:        emit,
		status:      agent.StatusIdle,
	}
}

func (c *Composer) StatusNow() agent.Status { return c.status }

func (c *Composer) Execute(ctx context.Context, input agent.Input) (agent.Result, error) {
	c.status = agent.StatusRunning
	scenes, ok := input["scenes"].([]Scene)
	if !ok || len(scenes) == 0 {
		c.status = agent.StatusError
		return c.errorResult(errs.New(errs.UserInputError, "composer.execute", "no scenes to compose", nil))
	}

	dir, cleanup, err := adapter.ScratchDir(c.scratchBase, "compose")
	if err != nil {
		c.status = agent.StatusError
		return c.errorResult(err)
	}

	c.emit.Emit("composing", fmt.Sprintf("reconciling %d scenes", len(scenes)))
	finalB64, subtitleB64, err := c.compose(ctx, dir, scenes)
	if err != nil {
		// Scratch dir is deliberately left on disk: partial intermediates
		// stay available for debugging a failed run.
		c.status = agent.StatusError
		return c.errorResult(err)
	}
	if err := c.persistOutput(finalB64, subtitleB64); err != nil {
		c.status = agent.StatusError
		return c.errorResult(err)
	}
	cleanup()

	c.status = agent.StatusCompleted
	return agent.Result{
		Success: true,
		Step:    "composer.complete",
		Status:  agent.StatusCompleted,
		Data: map[string]any{
			"final_video":   finalB64,
			"subtitle_file": subtitleB64,
		},
	}, nil
}

// HandleFeedback is never invoked in normal operation: COMPOSE is the
// last stage before COMPLETED and Execute carries it straight through.
func (c *Composer) HandleFeedback(ctx context.Context, text string, images []string) (agent.Result, error) {
	return c.errorResult(errs.New(errs.InvariantViolation, "composer.handle_feedback", "composer has no feedback phase", nil))
}

func (c *Composer) compose(ctx context.Context, dir string, scenes []Scene) (string, string, error) {
	videoPaths := make([]string, len(scenes))
	audioPaths := make([]string, len(scenes))
	var subtitle strings.Builder
	cumulative := 0.0

	for i, scene := range scenes {
		rawVideoPath, err := writeScratchFile(dir, fmt.Sprintf("scene_%03d_in.mp4", i), scene.VideoB64)
		if err != nil {
			return "", "", err
		}
		audioPath, err := writeScratchFile(dir, fmt.Sprintf("scene_%03d.wav", i), scene.AudioB64)
		if err != nil {
			return "", "", err
		}

		videoDur, err := c.probeDuration(ctx, dir, rawVideoPath)
		if err != nil {
			return "", "", err
		}
		audioDur, err := c.probeDuration(ctx, dir, audioPath)
		if err != nil {
			return "", "", err
		}

		adjustedPath, err := c.reconcile(ctx, dir, i, rawVideoPath, videoDur, audioDur)
		if err != nil {
			return "", "", err
		}

		start := cumulative
		cumulative += audioDur
		writeSubtitleCue(&subtitle, i+1, start, cumulative, scene.Text)

		videoPaths[i] = adjustedPath
		audioPaths[i] = audioPath

		c.emit.Emit("composing", fmt.Sprintf("scene %d/%d reconciled", i+1, len(scenes)))
	}

	c.emit.Emit("composing", "concatenating scenes")
	videoConcat, err := c.concat(ctx, dir, "videos", videoPaths, ".mp4")
	if err != nil {
		return "", "", err
	}
	audioConcat, err := c.concat(ctx, dir, "audios", audioPaths, ".wav")
	if err != nil {
		return "", "", err
	}

	c.emit.Emit("composing", "muxing final output")
	finalPath, err := c.mux(ctx, dir, videoConcat, audioConcat, subtitle.String())
	if err != nil {
		return "", "", err
	}

	finalBytes, err := os.ReadFile(finalPath)
	if err != nil {
		return "", "", errs.New(errs.ResourceError, "composer.compose", "reading final output", err)
	}
	return base64.StdEncoding.EncodeToString(finalBytes), base64.StdEncoding.EncodeToString([]byte(subtitle.String())), nil
}

func (c *Composer) reconcile(ctx context.Context, dir string, index int, videoPath string, videoDur, audioDur float64) (string, error) {
	decision, factor := decideSync(videoDur, audioDur)
	if decision == syncCopy {
		return videoPath, nil
	}

	outPath := filepath.Join(dir, fmt.Sprintf("scene_%03d_adj.mp4", index))
	var argv []string
	switch decision {
	case syncTrim:
		argv = []string{c.ffmpegPath, "-y", "-i", videoPath, "-t", formatSeconds(audioDur), "-c", "copy", outPath}
	case syncStretch:
		pts := fmt.Sprintf("setpts=PTS*%s", formatSeconds(1/factor))
		argv = []string{c.ffmpegPath, "-y", "-i", videoPath, "-filter:v", pts, outPath}
	case syncPad:
		padDuration := audioDur - videoDur
		tpad := fmt.Sprintf("tpad=stop_mode=clone:stop_duration=%s", formatSeconds(padDuration))
		argv = []string{c.ffmpegPath, "-y", "-i", videoPath, "-vf", tpad, outPath}
	}

	if _, err := c.subprocess.Run(ctx, argv, dir, 0); err != nil {
		return "", err
	}
	return outPath, nil
}

func (c *Composer) probeDuration(ctx context.Context, dir, path string) (float64, error) {
	argv := []string{c.ffprobePath, "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path}
	result, err := c.subprocess.Run(ctx, argv, dir, 0)
	if err != nil {
		return 0, err
	}
	return parseDuration(result.Stdout)
}

func (c *Composer) concat(ctx context.Context, dir, label string, paths []string, ext string) (string, error) {
	listPath := filepath.Join(dir, label+"_list.txt")
	var b strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&b, "file '%s'\n", p)
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0o600); err != nil {
		return "", errs.New(errs.ResourceError, "composer.concat", "writing "+label+" concat list", err)
	}

	outPath := filepath.Join(dir, label+"_concat"+ext)
	argv := []string{c.ffmpegPath, "-y", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", outPath}
	if _, err := c.subprocess.Run(ctx, argv, dir, 0); err != nil {
		return "", err
	}
	return outPath, nil
}

func (c *Composer) mux(ctx context.Context, dir, videoPath, audioPath, subtitleContent string) (string, error) {
	subtitlePath := filepath.Join(dir, "subtitles.srt")
	if err := os.WriteFile(subtitlePath, []byte(subtitleContent), 0o600); err != nil {
		return "", errs.New(errs.ResourceError, "composer.mux", "writing subtitle file", err)
	}

	outPath := filepath.Join(dir, "final.mp4")
	var argv []string
	if c.burnIn {
		argv = []string{
			c.ffmpegPath, "-y", "-i", videoPath, "-i", audioPath,
			"-vf", "subtitles=" + subtitlePath,
			"-c:v", "libx264", "-c:a", "aac", "-shortest", outPath,
		}
	} else {
		argv = []string{
			c.ffmpegPath, "-y", "-i", videoPath, "-i", audioPath, "-i", subtitlePath,
			"-c:v", "copy", "-c:a", "aac", "-c:s", "mov_text", "-shortest", outPath,
		}
	}

	if _, err := c.subprocess.Run(ctx, argv, dir, 0); err != nil {
		return "", err
	}
	return outPath, nil
}

// persistOutput writes the finished video and its subtitle track to the
// per-session video directory. A no-op when outputDir is unset.
func (c *Composer) persistOutput(finalB64, subtitleB64 string) error {
	if c.outputDir == "" {
		return nil
	}
	finalRaw, err := base64.StdEncoding.DecodeString(finalB64)
	if err != nil {
		return errs.New(errs.ParseError, "composer.persist_output", "decoding final video", err)
	}
	if err := os.WriteFile(filepath.Join(c.outputDir, "final.mp4"), finalRaw, 0o600); err != nil {
		return errs.New(errs.ResourceError, "composer.persist_output", "writing final video", err)
	}
	subtitleRaw, err := base64.StdEncoding.DecodeString(subtitleB64)
	if err != nil {
		return errs.New(errs.ParseError, "composer.persist_output", "decoding subtitle file", err)
	}
	if err := os.WriteFile(filepath.Join(c.outputDir, "subtitles.srt"), subtitleRaw, 0o600); err != nil {
		return errs.New(errs.ResourceError, "composer.persist_output", "writing subtitle file", err)
	}
	return nil
}

func writeScratchFile(dir, name, b64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", errs.New(errs.ParseError, "composer.write_scratch_file", "decoding "+name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return "", errs.New(errs.ResourceError, "composer.write_scratch_file", "writing "+name, err)
	}
	return path, nil
}

func (c *Composer) errorResult(err error) (agent.Result, error) {
	return agent.Result{
		Success:       false,
		Step:          "composer.error",
		Status:        agent.StatusError,
		NeedsFeedback: true,
		Message:       errs.UserSafeMessage(err),
	}, nil
}

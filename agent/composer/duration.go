package composer

import (
	"strconv"
	"strings"

	"github.com/kadirpekel/studioforge/errs"
)

type syncDecision int

const (
	syncCopy syncDecision = iota
	syncTrim
	syncStretch
	syncPad
)

const (
	syncToleranceSeconds = 0.1
	minStretchFactor     = 0.8
)

// decideSync picks the duration-reconciliation branch for one scene's
// video against its narration audio. The returned factor is
// video_dur/audio_dur and is only meaningful for the stretch branch.
func decideSync(videoDur, audioDur float64) (syncDecision, float64) {
	delta := videoDur - audioDur
	if delta < 0 {
		delta = -delta
	}
	if delta < syncToleranceSeconds {
		return syncCopy, 1
	}
	if audioDur < videoDur {
		return syncTrim, 0
	}
	factor := videoDur / audioDur
	if factor >= minStretchFactor {
		return syncStretch, factor
	}
	return syncPad, factor
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

// parseDuration parses ffprobe's "format=duration" stdout.
func parseDuration(stdout string) (float64, error) {
	dur, err := strconv.ParseFloat(strings.TrimSpace(stdout), 64)
	if err != nil {
		return 0, errs.New(errs.ParseError, "composer.probe_duration", "unparseable ffprobe output", err)
	}
	return dur, nil
}

package composer

import (
	"fmt"
	"strings"
)

// formatSRTTimestamp renders seconds as an SRT "HH:MM:SS,mmm" timestamp.
func formatSRTTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMillis := int64(seconds*1000 + 0.5)
	hours := totalMillis / 3600000
	totalMillis %= 3600000
	minutes := totalMillis / 60000
	totalMillis %= 60000
	secs := totalMillis / 1000
	millis := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// writeSubtitleCue appends one SRT cue for a scene's narration, with
// start/end given as cumulative seconds on the final audio timeline.
func writeSubtitleCue(b *strings.Builder, index int, start, end float64, text string) {
	fmt.Fprintf(b, "%d\n%s --> %s\n%s\n\n", index, formatSRTTimestamp(start), formatSRTTimestamp(end), text)
}

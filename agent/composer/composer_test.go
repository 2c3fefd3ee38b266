package composer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/studioforge/agent"
	"github.com/kadirpekel/studioforge/progress"
)

func TestDecideSync_WithinToleranceCopies(t *testing.T) {
	decision, _ := decideSync(10.02, 10.0)
	assert.Equal(t, syncCopy, decision)
}

func TestDecideSync_AudioShorterTrims(t *testing.T) {
	decision, _ := decideSync(10.0, 6.0)
	assert.Equal(t, syncTrim, decision)
}

func TestDecideSync_MildlyShortVideoStretches(t *testing.T) {
	// video 9s, audio 10s -> factor 0.9, above the 0.8 floor.
	decision, factor := decideSync(9.0, 10.0)
	assert.Equal(t, syncStretch, decision)
	assert.InDelta(t, 0.9, factor, 0.0001)
}

func TestDecideSync_VeryShortVideoPads(t *testing.T) {
	// video 5s, audio 10s -> factor 0.5, below the 0.8 floor.
	decision, factor := decideSync(5.0, 10.0)
	assert.Equal(t, syncPad, decision)
	assert.InDelta(t, 0.5, factor, 0.0001)
}

func TestDecideSync_ExactStretchBoundaryStretches(t *testing.T) {
	// factor == 0.8 exactly is documented as the stretch side of the boundary.
	decision, factor := decideSync(8.0, 10.0)
	assert.Equal(t, syncStretch, decision)
	assert.InDelta(t, 0.8, factor, 0.0001)
}

func TestFormatSRTTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:00,000", formatSRTTimestamp(0))
	assert.Equal(t, "00:00:05,230", formatSRTTimestamp(5.23))
	assert.Equal(t, "01:02:03,004", formatSRTTimestamp(3723.004))
}

func TestWriteSubtitleCue_CumulativeTimestamps(t *testing.T) {
	var b strings.Builder
	writeSubtitleCue(&b, 1, 0, 3.5, "첫 장면입니다")
	writeSubtitleCue(&b, 2, 3.5, 7.0, "두 번째 장면입니다")

	out := b.String()
	assert.Contains(t, out, "1\n00:00:00,000 --> 00:00:03,500\n첫 장면입니다")
	assert.Contains(t, out, "2\n00:00:03,500 --> 00:00:07,000\n두 번째 장면입니다")
}

func TestParseDuration(t *testing.T) {
	dur, err := parseDuration("12.345000\n")
	require.NoError(t, err)
	assert.InDelta(t, 12.345, dur, 0.0001)

	_, err = parseDuration("not a number")
	assert.Error(t, err)
}

func TestComposer_Execute_NoScenesErrors(t *testing.T) {
	reg := progress.NewRegistry()
	_, emit := reg.Bind("s1")
	c := New(nil, t.TempDir(), "ffmpeg", "ffprobe", true, t.TempDir(), emit)

	result, err := c.Execute(context.Background(), agent.Input{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, agent.StatusError, result.Status)
	assert.Equal(t, agent.StatusError, c.StatusNow())
}

func TestComposer_HandleFeedback_HasNoPhase(t *testing.T) {
	reg := progress.NewRegistry()
	_, emit := reg.Bind("s1")
	c := New(nil, t.TempDir(), "", "", true, t.TempDir(), emit)

	result, err := c.HandleFeedback(context.Background(), "확인", nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, agent.StatusError, result.Status)
}

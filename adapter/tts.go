package adapter

import (
	"context"
	"net/http"
)

// TTSRequest is the union of the two synthesis request shapes: a preset
// speaker name, or a voice-clone reference (base64 audio plus optional
// transcript text to steady the clone).
type TTSRequest struct {
	Text              string
	PresetSpeaker     string // non-empty for the default-voice option
	ReferenceAudioB64 string // non-empty for either clone option
	ReferenceText     string // optional, steadies clone-from-youtube output
}

// TTSResult is one section's synthesized audio.
type TTSResult struct {
	AudioB64 string
}

// TTS is the typed wrapper over the speech-synthesis backend.
type TTS struct {
	baseURL string
	client  *http.Client
}

// NewTTS builds a TTS adapter pointed at baseURL.
func NewTTS(baseURL string, client *http.Client) *TTS {
	if client == nil {
		client = http.DefaultClient
	}
	return &TTS{baseURL: baseURL, client: client}
}

// Synthesize submits one synthesis request and returns the resulting
// audio. The request shape sent over the wire depends on which of
// PresetSpeaker/ReferenceAudioB64 is populated.
func (t *TTS) Synthesize(ctx context.Context, req TTSRequest) (TTSResult, error) {
	payload := map[string]any{"text": req.Text}
	if req.PresetSpeaker != "" {
		payload["preset_speaker"] = req.PresetSpeaker
	}
	if req.ReferenceAudioB64 != "" {
		payload["reference_audio"] = req.ReferenceAudioB64
		if req.ReferenceText != "" {
			payload["reference_text"] = req.ReferenceText
		}
	}

	var resp struct {
		AudioB64 string `json:"audio_base64"`
	}
	if err := postJSON(ctx, t.client, t.baseURL+"/synthesize", payload, &resp, "tts"); err != nil {
		return TTSResult{}, err
	}
	return TTSResult{AudioB64: resp.AudioB64}, nil
}

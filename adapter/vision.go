package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kadirpekel/studioforge/errs"
)

// ArtStyle is one of the art-style buckets the vision backend classifies
// a reference image into.
type ArtStyle string

const (
	StyleCartoon      ArtStyle = "cartoon"
	StyleAnime        ArtStyle = "anime"
	StyleRealistic    ArtStyle = "realistic"
	Style3D           ArtStyle = "3d"
	StyleIllustration ArtStyle = "illustration"
	StylePixel        ArtStyle = "pixel"
)

// QualityVerdict is the strict PASS/FAIL evaluation from a vision model.
type QualityVerdict struct {
	Score   int // 1-10
	Verdict string // "PASS" or "FAIL"
}

// Vision is the typed wrapper over the vision-model backend.
type Vision struct {
	baseURL string
	client  *http.Client
}

// NewVision builds a Vision adapter pointed at baseURL.
func NewVision(baseURL string, client *http.Client) *Vision {
	if client == nil {
		client = http.DefaultClient
	}
	return &Vision{baseURL: baseURL, client: client}
}

// AnalyzeImage asks a free-form question about an image, returning raw
// text (e.g. for describe_character).
func (v *Vision) AnalyzeImage(ctx context.Context, imageB64, prompt string) (string, error) {
	var resp struct {
		Text string `json:"text"`
	}
	if err := v.postJSON(ctx, "/analyze", map[string]any{"image": imageB64, "prompt": prompt}, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

// AnalyzeStyle detects the art style of a reference image.
func (v *Vision) AnalyzeStyle(ctx context.Context, imageB64 string) (ArtStyle, error) {
	var resp struct {
		Style string `json:"style"`
	}
	if err := v.postJSON(ctx, "/analyze_style", map[string]any{"image": imageB64}, &resp); err != nil {
		return "", err
	}
	return normalizeStyle(resp.Style), nil
}

// DescribeCharacter returns a free-form description map for an image.
func (v *Vision) DescribeCharacter(ctx context.Context, imageB64 string) (map[string]any, error) {
	var resp map[string]any
	if err := v.postJSON(ctx, "/describe_character", map[string]any{"image": imageB64}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// QualityCheck submits a reference image and candidate frames for a
// strict PASS/FAIL character-identity evaluation.
func (v *Vision) QualityCheck(ctx context.Context, referenceB64 string, frames []string, strict bool) (QualityVerdict, error) {
	var resp QualityVerdict
	payload := map[string]any{"reference": referenceB64, "frames": frames, "strict": strict}
	if err := v.postJSON(ctx, "/quality_check", payload, &resp); err != nil {
		return QualityVerdict{}, err
	}
	return resp, nil
}

func normalizeStyle(raw string) ArtStyle {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "cartoon":
		return StyleCartoon
	case "anime":
		return StyleAnime
	case "3d":
		return Style3D
	case "illustration":
		return StyleIllustration
	case "pixel":
		return StylePixel
	default:
		return StyleRealistic
	}
}

func (v *Vision) postJSON(ctx context.Context, path string, body any, out any) error {
	return postJSON(ctx, v.client, v.baseURL+path, body, out, "vision")
}

func postJSON(ctx context.Context, client *http.Client, url string, body any, out any, adapterName string) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return errs.New(errs.InvariantViolation, adapterName+".request", url, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(raw)))
	if err != nil {
		return errs.New(errs.AdapterFatal, adapterName+".request", url, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return errs.New(errs.AdapterTransient, adapterName+".request", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return errs.New(errs.AdapterTransient, adapterName+".request", resp.Status, nil)
	}
	if resp.StatusCode >= 400 {
		return errs.New(errs.AdapterFatal, adapterName+".request", resp.Status, nil)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.New(errs.ParseError, adapterName+".response", url, err)
	}
	return nil
}

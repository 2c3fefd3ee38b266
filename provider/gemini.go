package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kadirpekel/studioforge/errs"
)

// GeminiChatter speaks Google's generateContent REST shape, distinct
// enough from the OpenAI chat/completions format (role="model" instead
// of "assistant", system instructions as a separate field, API key as a
// query parameter) to warrant its own wire types.
type GeminiChatter struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewGeminiChatter builds a Chatter against the Gemini API.
func NewGeminiChatter(baseURL, apiKey, model string, client *http.Client) *GeminiChatter {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &GeminiChatter{baseURL: baseURL, apiKey: apiKey, model: model, client: client}
}

type geminiContent struct {
	Role  string            `json:"role"`
	Parts []map[string]any  `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (c *GeminiChatter) Chat(ctx context.Context, messages []Message, temperature float64, maxTokens int, systemPrompt string) (string, error) {
	contents := make([]geminiContent, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []map[string]any{{"text": m.Content}}})
	}

	req := geminiRequest{
		Contents:         contents,
		GenerationConfig: &geminiGenerationConfig{Temperature: temperature, MaxOutputTokens: maxTokens},
	}
	if systemPrompt != "" {
		req.SystemInstruction = &geminiContent{Parts: []map[string]any{{"text": systemPrompt}}}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", errs.New(errs.InvariantViolation, "provider.gemini.request", "marshal", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", errs.New(errs.AdapterFatal, "provider.gemini.request", c.baseURL, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", errs.New(errs.AdapterTransient, "provider.gemini.request", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", errs.New(errs.AdapterTransient, "provider.gemini.response", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}
	if resp.StatusCode >= 400 {
		return "", errs.New(errs.AdapterFatal, "provider.gemini.response", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errs.New(errs.ParseError, "provider.gemini.response", "decoding generateContent response", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errs.New(errs.AdapterFatal, "provider.gemini.response", "no candidates returned", nil)
	}
	text, _ := out.Candidates[0].Content.Parts[0]["text"].(string)
	return text, nil
}

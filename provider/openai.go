package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kadirpekel/studioforge/errs"
)

// OpenAIChatter speaks the OpenAI chat/completions wire format, shared by
// every provider whose backend exposes an OpenAI-compatible endpoint:
// groq, openrouter, and a local vLLM server all qualify.
type OpenAIChatter struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAIChatter builds a Chatter against an OpenAI-compatible
// endpoint. apiKey may be empty for a local server that needs none.
func NewOpenAIChatter(baseURL, apiKey, model string, client *http.Client) *OpenAIChatter {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &OpenAIChatter{baseURL: baseURL, apiKey: apiKey, model: model, client: client}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIChatter) Chat(ctx context.Context, messages []Message, temperature float64, maxTokens int, systemPrompt string) (string, error) {
	wire := make([]openAIMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		wire = append(wire, openAIMessage{Role: "system", Content: systemPrompt})
	}
	for _, m := range messages {
		wire = append(wire, openAIMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(openAIRequest{Model: c.model, Messages: wire, Temperature: temperature, MaxTokens: maxTokens})
	if err != nil {
		return "", errs.New(errs.InvariantViolation, "provider.openai.request", "marshal", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errs.New(errs.AdapterFatal, "provider.openai.request", c.baseURL, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errs.New(errs.AdapterTransient, "provider.openai.request", c.baseURL, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 500 {
		return "", errs.New(errs.AdapterTransient, "provider.openai.response", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}
	if resp.StatusCode >= 400 {
		return "", errs.New(errs.AdapterFatal, "provider.openai.response", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	var out openAIResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", errs.New(errs.ParseError, "provider.openai.response", "decoding chat completion", err)
	}
	if len(out.Choices) == 0 {
		return "", errs.New(errs.AdapterFatal, "provider.openai.response", "no choices returned", nil)
	}
	return out.Choices[0].Message.Content, nil
}

package adapter

import (
	"context"

	"github.com/kadirpekel/studioforge/provider"
)

// LLM delegates chat/generate calls to the Provider Router, giving
// agents a narrow interface instead of the full router surface.
type LLM struct {
	router *provider.Router
}

// NewLLM wraps a Router as an LLM adapter.
func NewLLM(router *provider.Router) *LLM {
	return &LLM{router: router}
}

func (l *LLM) Chat(ctx context.Context, messages []provider.Message, temperature float64, maxTokens int, systemPrompt string) (string, error) {
	return l.router.Chat(ctx, messages, temperature, maxTokens, systemPrompt)
}

func (l *LLM) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int, systemPrompt string) (string, error) {
	return l.router.Generate(ctx, prompt, temperature, maxTokens, systemPrompt)
}

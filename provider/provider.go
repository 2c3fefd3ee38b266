// Package provider implements the LLM Provider Router: an ordered
// fallback chain across remote and local chat providers, gated by the
// Quota Manager.
package provider

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"golang.org/x/time/rate"

	"github.com/kadirpekel/studioforge/errs"
	"github.com/kadirpekel/studioforge/quota"
)

// Message is one turn in a chat history.
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Chatter is the uniform surface every LLM backend exposes. Concrete
// implementations (HTTP clients for groq/openrouter/gemini/local-vllm)
// live behind this interface so the router never depends on a specific
// wire format.
type Chatter interface {
	Chat(ctx context.Context, messages []Message, temperature float64, maxTokens int, systemPrompt string) (string, error)
}

// Kind distinguishes quota-metered remote providers from the unlimited
// local fallback.
type Kind string

const (
	Remote Kind = "remote"
	Local  Kind = "local"
)

// Provider is one entry in the fallback chain.
type Provider struct {
	Name     string
	Kind     Kind
	Priority int // lower = tried first
	Chatter  Chatter

	limiter *rate.Limiter // nil means no rate limit
}

// NewProvider builds a chain entry. ratePerSec <= 0 means no rate limiting.
func NewProvider(name string, kind Kind, priority int, chatter Chatter, ratePerSec float64) *Provider {
	p := &Provider{Name: name, Kind: kind, Priority: priority, Chatter: chatter}
	if ratePerSec > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(ratePerSec), 1)
	}
	return p
}

// ErrNoProvidersAvailable is raised when every provider was skipped
// (quota-exhausted or never attempted) and none could even be tried.
var ErrNoProvidersAvailable = errors.New("no providers available")

// Router is the ordered provider fallback chain: priority order, quota
// gate, rate limit, first success wins.
type Router struct {
	providers []*Provider
	quota     *quota.Manager
	log       *slog.Logger
}

// New builds a Router from providers sorted by Priority ascending. The
// caller is responsible for excluding providers missing credentials
// before constructing the chain: availability is probed once at
// startup, not on every call.
func New(providers []*Provider, q *quota.Manager, log *slog.Logger) *Router {
	sorted := make([]*Provider, len(providers))
	copy(sorted, providers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	if log == nil {
		log = slog.Default()
	}
	return &Router{providers: sorted, quota: q, log: log}
}

// Chat attempts providers in priority order, skipping any remote provider
// whose quota is exhausted, and falls through to the next on any error.
func (r *Router) Chat(ctx context.Context, messages []Message, temperature float64, maxTokens int, systemPrompt string) (string, error) {
	var lastErr error
	attempted := false

	for _, p := range r.providers {
		if p.Kind == Remote && r.quota != nil && !r.quota.CanUse(p.Name) {
			r.log.Debug("provider skipped: quota exhausted", "provider", p.Name)
			continue
		}
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				lastErr = err
				continue
			}
		}

		attempted = true
		text, err := p.Chatter.Chat(ctx, messages, temperature, maxTokens, systemPrompt)
		if err != nil {
			r.log.Warn("provider failed", "provider", p.Name, "error", err)
			lastErr = err
			continue
		}

		if p.Kind == Remote && r.quota != nil {
			r.quota.Use(p.Name, 1)
		}
		return text, nil
	}

	if !attempted {
		return "", errs.New(errs.ResourceError, "provider.chat", "no providers available", ErrNoProvidersAvailable)
	}
	return "", errs.New(errs.AdapterTransient, "provider.chat", "all providers failed", lastErr)
}

// Generate is Chat with a single user-role message, a convenience for
// callers that have no conversation history to thread through.
func (r *Router) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int, systemPrompt string) (string, error) {
	return r.Chat(ctx, []Message{{Role: "user", Content: prompt}}, temperature, maxTokens, systemPrompt)
}

// ProviderStatus reports one provider's availability for observability
// endpoints and operator tooling.
type ProviderStatus struct {
	Name      string
	Priority  int
	IsLocal   bool
	CanUse    bool
}

// Status reports the current availability of every provider in the chain.
func (r *Router) Status() []ProviderStatus {
	out := make([]ProviderStatus, 0, len(r.providers))
	for _, p := range r.providers {
		canUse := p.Kind == Local || r.quota == nil || r.quota.CanUse(p.Name)
		out = append(out, ProviderStatus{
			Name:     p.Name,
			Priority: p.Priority,
			IsLocal:  p.Kind == Local,
			CanUse:   canUse,
		})
	}
	return out
}

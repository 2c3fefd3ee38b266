// Command orchestrator serves the studioforge pipeline API: start a
// channel-to-video run, feed it replies, and read back its progress.
//
// Usage:
//
//	orchestrator serve --config config.yaml
//	orchestrator serve --addr :9090
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/studioforge/adapter"
	"github.com/kadirpekel/studioforge/agent/character"
	"github.com/kadirpekel/studioforge/agent/imagegen"
	"github.com/kadirpekel/studioforge/agent/planner"
	"github.com/kadirpekel/studioforge/agent/voice"
	"github.com/kadirpekel/studioforge/benchmark"
	"github.com/kadirpekel/studioforge/config"
	"github.com/kadirpekel/studioforge/httpapi"
	"github.com/kadirpekel/studioforge/logger"
	"github.com/kadirpekel/studioforge/orchestrator"
	"github.com/kadirpekel/studioforge/pathpolicy"
	"github.com/kadirpekel/studioforge/progress"
	"github.com/kadirpekel/studioforge/provider"
	"github.com/kadirpekel/studioforge/quota"
	"github.com/kadirpekel/studioforge/session"
)

// CLI defines the command-line interface.
type CLI struct {
	Serve ServeCmd `cmd:"" help:"Start the pipeline HTTP API."`

	Config   string `short:"c" help:"Path to config file." type:"path"`
	LogLevel string `help:"Log level (debug, info, warn, error)."`
}

// ServeCmd starts the HTTP API server.
type ServeCmd struct {
	Addr string `help:"Address to listen on." default:":8090"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	level := cfg.LogLevel
	if cli.LogLevel != "" {
		level = cli.LogLevel
	}
	log := logger.Init(logger.ParseLevel(level), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	orc, err := buildOrchestrator(cfg, log)
	if err != nil {
		return fmt.Errorf("wiring orchestrator: %w", err)
	}

	httpSrv := &http.Server{
		Addr:         c.Addr,
		Handler:      httpapi.New(orc, log),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // image/video generation calls run long
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", c.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// buildOrchestrator wires every adapter, builder, and agent dependency
// into one Orchestrator. It is the single place that knows the concrete
// types behind every interface the agent layer depends on.
func buildOrchestrator(cfg *config.Config, log *slog.Logger) (*orchestrator.Orchestrator, error) {
	policy, err := pathpolicy.New(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("path policy: %w", err)
	}

	limits := make([]quota.Limit, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		if p.DailyLimit > 0 {
			limits = append(limits, quota.Limit{Provider: p.Name, Period: "daily", Max: p.DailyLimit})
		}
	}
	q := quota.New(policy.QuotaFile(), limits, cfg.QuotaWarnPct, cfg.QuotaBlockPct)

	providers := make([]*provider.Provider, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		if !p.HasCredentials() {
			log.Warn("skipping provider with no credentials", "provider", p.Name)
			continue
		}
		chatter, err := chatterFor(p)
		if err != nil {
			return nil, err
		}
		kind := provider.Remote
		if p.Kind == "local" {
			kind = provider.Local
		}
		providers = append(providers, provider.NewProvider(p.Name, kind, p.Priority, chatter, p.RatePerSec))
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no usable LLM providers configured")
	}
	router := provider.New(providers, q, log)

	httpClient := &http.Client{Timeout: 60 * time.Second}
	subprocess := adapter.NewSubprocess(cfg.VideoGenTimeout)

	deps := orchestrator.Dependencies{
		Metadata: adapter.NewMetadata(cfg.MetadataAdapterURL, httpClient),
		Vision:   adapter.NewVision(cfg.VisionAdapterURL, httpClient),
		LLM:      adapter.NewLLM(router),
		Browser:  adapter.NewBrowser(cfg.BrowserExecPath, 20*time.Second),
		Cache:    benchmark.New(policy.BenchmarkCacheDir()),
		Workflow: adapter.NewWorkflow(cfg.WorkflowEngineURL, httpClient, cfg.PollInterval),
		TTS:      adapter.NewTTS(cfg.TTSAdapterURL, httpClient),

		Subprocess:     subprocess,
		ScratchBase:    cfg.ScratchDir,
		FFmpegPath:     cfg.FFmpegPath,
		FFprobePath:    "ffprobe",
		ComposerBurnIn: cfg.ComposerBurnIn,

		PlannerTemplate: planner.DefaultTemplate{},

		CharacterBuilder: character.DefaultWorkflowBuilder{Checkpoint: "sdxl_base.safetensors"},

		ImagePrompterVisualTag: cfg.VisualStyleTag,

		ImageGenBuilder: imagegen.DefaultWorkflowBuilder{Checkpoint: "sdxl_base.safetensors", VideoModelName: "svd_xt"},
		ImageGenFrames:  imagegen.SubprocessFrameExtractor{Subprocess: subprocess, ScratchBase: cfg.ScratchDir, FFmpegPath: cfg.FFmpegPath},
		ImageGenOptions: imagegen.Options{EnableVideo: true, EnableQC: true, MaxRegenerations: cfg.MaxRegenerations},

		YouTubeExtractor: voice.SubprocessYouTubeExtractor{
			Subprocess:  subprocess,
			ScratchBase: cfg.ScratchDir,
			YTDLPPath:   cfg.YTDLPPath,
			FFmpegPath:  cfg.FFmpegPath,
		},
		VoicePresetSpeaker: cfg.VoicePresetSpeaker,
	}

	reg := progress.NewRegistry()
	store, err := session.NewFileStore(policy.SessionsRoot())
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	factory := orchestrator.NewAgentFactory(deps, policy, reg)
	return orchestrator.New(store, factory, policy, reg), nil
}

// chatterFor builds the provider.Chatter implementation matching a
// provider's configured kind. Gemini's REST shape differs enough from
// the OpenAI-compatible chat/completions family (groq, openrouter, any
// local vLLM server) to need its own implementation; everything else
// speaks the same wire format.
func chatterFor(p config.ProviderConfig) (provider.Chatter, error) {
	switch p.Name {
	case "gemini":
		baseURL := p.BaseURL
		if baseURL == "" {
			baseURL = "https://generativelanguage.googleapis.com"
		}
		return provider.NewGeminiChatter(baseURL, p.APIKey(), p.Model, nil), nil
	default:
		baseURL := p.BaseURL
		if baseURL == "" {
			baseURL = defaultOpenAIBaseURL(p.Name)
		}
		return provider.NewOpenAIChatter(baseURL, p.APIKey(), p.Model, nil), nil
	}
}

func defaultOpenAIBaseURL(name string) string {
	switch name {
	case "groq":
		return "https://api.groq.com/openai/v1"
	case "openrouter":
		return "https://openrouter.ai/api/v1"
	default:
		return "http://localhost:8000/v1"
	}
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("orchestrator"),
		kong.Description("studioforge pipeline API server"),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}

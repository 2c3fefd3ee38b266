// Package config loads studioforge's process configuration. Every
// external service URL, credential, and model identifier is supplied by
// environment variables with documented defaults; nothing is
// embedded in source. YAML files, when present, are merged first and then
// the path, URL, model and style string values are run through
// ${VAR}/${VAR:-default} expansion so a deployment can override them
// without editing the file. LogLevel and the provider name, kind and
// api_key_env fields are used as written.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig describes one entry in the LLM provider fallback chain.
type ProviderConfig struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"` // "remote" or "local"
	Priority    int    `yaml:"priority"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	DailyLimit  int    `yaml:"daily_limit"`  // 0 = unlimited
	RatePerSec  float64 `yaml:"rate_per_sec"` // 0 = unlimited
}

// Config is the root process configuration.
type Config struct {
	DataDir  string           `yaml:"data_dir"`
	LogLevel string           `yaml:"log_level"`

	Providers []ProviderConfig `yaml:"providers"`

	QuotaWarnPct  int `yaml:"quota_warn_pct"`
	QuotaBlockPct int `yaml:"quota_block_pct"`

	WorkflowEngineURL  string        `yaml:"workflow_engine_url"`
	VisionAdapterURL   string        `yaml:"vision_adapter_url"`
	TTSAdapterURL      string        `yaml:"tts_adapter_url"`
	MetadataAdapterURL string        `yaml:"metadata_adapter_url"`
	PollInterval       time.Duration `yaml:"poll_interval"`

	ImageGenTimeout time.Duration `yaml:"image_gen_timeout"`
	VideoGenTimeout time.Duration `yaml:"video_gen_timeout"`
	MaxRegenerations int          `yaml:"max_regenerations"`

	FFmpegPath string `yaml:"ffmpeg_path"`
	YTDLPPath  string `yaml:"ytdlp_path"`

	// BrowserExecPath is the Chromium/Chrome binary go-rod drives for
	// thumbnail/layout screenshots when a channel has no metadata-adapter
	// endpoint for them. Empty means let go-rod locate or download one.
	BrowserExecPath string `yaml:"browser_exec_path"`

	// VisualStyleTag is folded into every scene prompt ImagePrompter
	// writes, keeping a channel's art direction consistent across scenes.
	VisualStyleTag string `yaml:"visual_style_tag"`

	// VoicePresetSpeaker names the TTS adapter's default speaker/voice
	// preset when a channel has supplied no reference voice samples.
	VoicePresetSpeaker string `yaml:"voice_preset_speaker"`

	// ComposerBurnIn controls whether Composer burns subtitles directly
	// into the final video or emits them as a sidecar file only.
	ComposerBurnIn bool `yaml:"composer_burn_in"`

	// ScratchDir is the base directory Subprocess-backed agents (Voice,
	// Composer, ImageGenerator's frame extractor) write intermediate media
	// files under.
	ScratchDir string `yaml:"scratch_dir"`
}

// Default returns the built-in configuration, env-overridable in every
// field via the documented environment variables.
func Default() *Config {
	return &Config{
		DataDir:  getenvDefault("STUDIOFORGE_DATA_DIR", "./data"),
		LogLevel: getenvDefault("STUDIOFORGE_LOG_LEVEL", "info"),
		Providers: []ProviderConfig{
			{Name: "groq", Kind: "remote", Priority: 1, APIKeyEnv: "GROQ_API_KEY", Model: getenvDefault("GROQ_MODEL", "llama-3.3-70b-versatile"), DailyLimit: 1000, RatePerSec: 2},
			{Name: "openrouter", Kind: "remote", Priority: 2, APIKeyEnv: "OPENROUTER_API_KEY", Model: getenvDefault("OPENROUTER_MODEL", "meta-llama/llama-3.3-70b-instruct"), DailyLimit: 1000, RatePerSec: 2},
			{Name: "gemini", Kind: "remote", Priority: 3, APIKeyEnv: "GEMINI_API_KEY", Model: getenvDefault("GEMINI_MODEL", "gemini-2.0-flash"), DailyLimit: 1500, RatePerSec: 2},
			{Name: "local-vllm", Kind: "local", Priority: 4, BaseURL: getenvDefault("LOCAL_VLLM_URL", "http://localhost:8000"), Model: getenvDefault("LOCAL_VLLM_MODEL", "qwen2.5-14b-instruct")},
		},
		QuotaWarnPct:      80,
		QuotaBlockPct:     95,
		WorkflowEngineURL:  getenvDefault("WORKFLOW_ENGINE_URL", "http://localhost:8188"),
		VisionAdapterURL:   getenvDefault("VISION_ADAPTER_URL", "http://localhost:8001"),
		TTSAdapterURL:      getenvDefault("TTS_ADAPTER_URL", "http://localhost:8002"),
		MetadataAdapterURL: getenvDefault("METADATA_ADAPTER_URL", "http://localhost:8003"),
		PollInterval:       2 * time.Second,
		ImageGenTimeout:    180 * time.Second,
		VideoGenTimeout:    600 * time.Second,
		MaxRegenerations:   2,
		FFmpegPath:         getenvDefault("FFMPEG_PATH", "ffmpeg"),
		YTDLPPath:          getenvDefault("YTDLP_PATH", "yt-dlp"),
		BrowserExecPath:    getenvDefault("BROWSER_EXEC_PATH", ""),
		VisualStyleTag:     getenvDefault("VISUAL_STYLE_TAG", "vibrant, high-contrast YouTube thumbnail style"),
		VoicePresetSpeaker: getenvDefault("VOICE_PRESET_SPEAKER", "default"),
		ComposerBurnIn:     getenvDefault("COMPOSER_BURN_IN", "true") == "true",
		ScratchDir:         getenvDefault("STUDIOFORGE_SCRATCH_DIR", "./data/scratch"),
	}
}

// Load reads a YAML config file (if path is non-empty and exists),
// expands ${VAR} references in the fields expandConfig lists, and falls back to
// Default() values for anything left zero.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	mergeConfig(cfg, &fileCfg)
	expandConfig(cfg)
	return cfg, nil
}

func mergeConfig(base, override *Config) {
	if override.DataDir != "" {
		base.DataDir = override.DataDir
	}
	if override.LogLevel != "" {
		base.LogLevel = override.LogLevel
	}
	if len(override.Providers) > 0 {
		base.Providers = override.Providers
	}
	if override.QuotaWarnPct != 0 {
		base.QuotaWarnPct = override.QuotaWarnPct
	}
	if override.QuotaBlockPct != 0 {
		base.QuotaBlockPct = override.QuotaBlockPct
	}
	if override.WorkflowEngineURL != "" {
		base.WorkflowEngineURL = override.WorkflowEngineURL
	}
	if override.VisionAdapterURL != "" {
		base.VisionAdapterURL = override.VisionAdapterURL
	}
	if override.TTSAdapterURL != "" {
		base.TTSAdapterURL = override.TTSAdapterURL
	}
	if override.MetadataAdapterURL != "" {
		base.MetadataAdapterURL = override.MetadataAdapterURL
	}
	if override.PollInterval != 0 {
		base.PollInterval = override.PollInterval
	}
	if override.ImageGenTimeout != 0 {
		base.ImageGenTimeout = override.ImageGenTimeout
	}
	if override.VideoGenTimeout != 0 {
		base.VideoGenTimeout = override.VideoGenTimeout
	}
	if override.MaxRegenerations != 0 {
		base.MaxRegenerations = override.MaxRegenerations
	}
	if override.FFmpegPath != "" {
		base.FFmpegPath = override.FFmpegPath
	}
	if override.YTDLPPath != "" {
		base.YTDLPPath = override.YTDLPPath
	}
	if override.BrowserExecPath != "" {
		base.BrowserExecPath = override.BrowserExecPath
	}
	if override.VisualStyleTag != "" {
		base.VisualStyleTag = override.VisualStyleTag
	}
	if override.VoicePresetSpeaker != "" {
		base.VoicePresetSpeaker = override.VoicePresetSpeaker
	}
	if override.ScratchDir != "" {
		base.ScratchDir = override.ScratchDir
	}
}

func expandConfig(cfg *Config) {
	cfg.DataDir = expandEnv(cfg.DataDir)
	cfg.WorkflowEngineURL = expandEnv(cfg.WorkflowEngineURL)
	cfg.VisionAdapterURL = expandEnv(cfg.VisionAdapterURL)
	cfg.TTSAdapterURL = expandEnv(cfg.TTSAdapterURL)
	cfg.MetadataAdapterURL = expandEnv(cfg.MetadataAdapterURL)
	cfg.FFmpegPath = expandEnv(cfg.FFmpegPath)
	cfg.YTDLPPath = expandEnv(cfg.YTDLPPath)
	cfg.BrowserExecPath = expandEnv(cfg.BrowserExecPath)
	cfg.VisualStyleTag = expandEnv(cfg.VisualStyleTag)
	cfg.VoicePresetSpeaker = expandEnv(cfg.VoicePresetSpeaker)
	cfg.ScratchDir = expandEnv(cfg.ScratchDir)
	for i := range cfg.Providers {
		cfg.Providers[i].BaseURL = expandEnv(cfg.Providers[i].BaseURL)
		cfg.Providers[i].Model = expandEnv(cfg.Providers[i].Model)
	}
}

// APIKey resolves a provider's credential from its configured env var.
func (p ProviderConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

// HasCredentials reports whether a remote provider's env credential is
// present; local providers always report true (they need no API key).
func (p ProviderConfig) HasCredentials() bool {
	if p.Kind == "local" {
		return true
	}
	return p.APIKey() != ""
}

// Package config provides the configuration schema, loader, and file watcher
// for the Realtime-Caption relay server.
package config

// LogLevel controls log verbosity for the relay server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for the relay.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Audio     AudioConfig     `yaml:"audio"`
	Subtitle  SubtitleConfig  `yaml:"subtitle"`
	Recording RecordingConfig `yaml:"recording"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":27000").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// AudioConfig describes the PCM format of the upload stream and the VAD
// windowing applied to it.
type AudioConfig struct {
	// SampleRate is the upload stream sample rate in Hz. Default: 16000.
	SampleRate int `yaml:"sample_rate"`

	// ChunkMs is the VAD analysis window duration in milliseconds.
	// Default: 300.
	ChunkMs int `yaml:"chunk_ms"`

	// MaxEndSilenceMs is the trailing-silence tolerance passed to the VAD
	// backend. Zero selects the backend default.
	MaxEndSilenceMs int `yaml:"max_end_silence_ms"`
}

// SubtitleConfig holds subtitle/translation defaults.
type SubtitleConfig struct {
	// DefaultTargetLang is the translation target applied to a subscriber at
	// connect time, until a set_target_lang command overrides it.
	// Default: "en".
	DefaultTargetLang string `yaml:"default_target_lang"`

	// DefaultSourceLang is assumed when the ASR transcript carries no leading
	// language tag. Default: "zh".
	DefaultSourceLang string `yaml:"default_source_lang"`

	// ASRLang is the recognition language hint forwarded to the ASR backend.
	// Default: "auto".
	ASRLang string `yaml:"asr_lang"`
}

// RecordingConfig holds recording-session settings.
type RecordingConfig struct {
	// Dir is the directory recording artifacts are written to.
	// Default: "recordings".
	Dir string `yaml:"dir"`

	// Stereo duplicates the mono upload stream into two channels in the
	// final artifact. The sample rate is unchanged.
	Stereo bool `yaml:"stereo"`
}

// ProvidersConfig declares which collaborator implementation to use for each
// pipeline stage.
type ProvidersConfig struct {
	VAD       ProviderEntry `yaml:"vad"`
	ASR       ProviderEntry `yaml:"asr"`
	Translate ProviderEntry `yaml:"translate"`
}

// ProviderEntry is the common configuration block shared by all provider types.
type ProviderEntry struct {
	// Name selects the implementation (e.g. "funasr", "nllb", "openai").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL is the provider's endpoint (inference server URL or API base).
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider, where applicable.
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above.
	Options map[string]any `yaml:"options"`
}

// Default returns a Config populated with the built-in defaults. Loading a
// file overlays on top of this.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":27000",
			LogLevel:   LogInfo,
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			ChunkMs:    300,
		},
		Subtitle: SubtitleConfig{
			DefaultTargetLang: "en",
			DefaultSourceLang: "zh",
			ASRLang:           "auto",
		},
		Recording: RecordingConfig{
			Dir: "recordings",
		},
	}
}

// applyDefaults fills zero-valued fields of cfg from [Default].
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = def.Server.ListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = def.Server.LogLevel
	}
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = def.Audio.SampleRate
	}
	if cfg.Audio.ChunkMs == 0 {
		cfg.Audio.ChunkMs = def.Audio.ChunkMs
	}
	if cfg.Subtitle.DefaultTargetLang == "" {
		cfg.Subtitle.DefaultTargetLang = def.Subtitle.DefaultTargetLang
	}
	if cfg.Subtitle.DefaultSourceLang == "" {
		cfg.Subtitle.DefaultSourceLang = def.Subtitle.DefaultSourceLang
	}
	if cfg.Subtitle.ASRLang == "" {
		cfg.Subtitle.ASRLang = def.Subtitle.ASRLang
	}
	if cfg.Recording.Dir == "" {
		cfg.Recording.Dir = def.Recording.Dir
	}
}

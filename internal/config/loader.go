package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to reject unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"vad":       {"fsmn"},
	"asr":       {"funasr"},
	"translate": {"nllb", "openai"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and validates
// the result. Useful in tests where configs are constructed from string
// literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", cfg.Audio.SampleRate))
	}
	if cfg.Audio.ChunkMs <= 0 {
		errs = append(errs, fmt.Errorf("audio.chunk_ms must be positive, got %d", cfg.Audio.ChunkMs))
	}
	if cfg.Audio.MaxEndSilenceMs < 0 {
		errs = append(errs, fmt.Errorf("audio.max_end_silence_ms must not be negative, got %d", cfg.Audio.MaxEndSilenceMs))
	}

	errs = append(errs, validateProviderName("vad", cfg.Providers.VAD.Name)...)
	errs = append(errs, validateProviderName("asr", cfg.Providers.ASR.Name)...)
	errs = append(errs, validateProviderName("translate", cfg.Providers.Translate.Name)...)

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// validateProviderName checks a provider name against [ValidProviderNames].
// Empty names are allowed; the stage runs with a nil collaborator.
func validateProviderName(kind, name string) []error {
	if name == "" {
		return nil
	}
	for _, valid := range ValidProviderNames[kind] {
		if name == valid {
			return nil
		}
	}
	return []error{fmt.Errorf("providers.%s.name %q is unknown; valid values: %v", kind, name, ValidProviderNames[kind])}
}

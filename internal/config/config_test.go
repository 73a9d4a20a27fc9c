package config_test

import (
	"strings"
	"testing"

	"github.com/orangeburn/Realtime-Caption/internal/config"
)

const sampleYAML = `
server:
  listen_addr: ":27000"
  log_level: info

audio:
  sample_rate: 16000
  chunk_ms: 800
  max_end_silence_ms: 350

subtitle:
  default_target_lang: en
  default_source_lang: zh
  asr_lang: auto

recording:
  dir: recordings
  stereo: true

providers:
  vad:
    name: fsmn
    base_url: http://localhost:10096
  asr:
    name: funasr
    base_url: http://localhost:10095
    options:
      use_itn: true
  translate:
    name: nllb
    base_url: http://localhost:6060
`

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":27000" {
		t.Errorf("server.listen_addr: got %q, want %q", cfg.Server.ListenAddr, ":27000")
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("server.log_level: got %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Audio.ChunkMs != 800 {
		t.Errorf("audio.chunk_ms: got %d, want 800", cfg.Audio.ChunkMs)
	}
	if cfg.Audio.MaxEndSilenceMs != 350 {
		t.Errorf("audio.max_end_silence_ms: got %d, want 350", cfg.Audio.MaxEndSilenceMs)
	}
	if !cfg.Recording.Stereo {
		t.Error("recording.stereo: got false, want true")
	}
	if cfg.Providers.ASR.Name != "funasr" {
		t.Errorf("providers.asr.name: got %q, want funasr", cfg.Providers.ASR.Name)
	}
	if cfg.Providers.Translate.BaseURL != "http://localhost:6060" {
		t.Errorf("providers.translate.base_url: got %q", cfg.Providers.Translate.BaseURL)
	}
	if v, ok := cfg.Providers.ASR.Options["use_itn"].(bool); !ok || !v {
		t.Errorf("providers.asr.options.use_itn: got %v", cfg.Providers.ASR.Options["use_itn"])
	}
}

func TestLoadFromReader_Defaults(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":27000" {
		t.Errorf("default listen_addr: got %q", cfg.Server.ListenAddr)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("default sample_rate: got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.ChunkMs != 300 {
		t.Errorf("default chunk_ms: got %d", cfg.Audio.ChunkMs)
	}
	if cfg.Subtitle.DefaultTargetLang != "en" {
		t.Errorf("default target lang: got %q", cfg.Subtitle.DefaultTargetLang)
	}
	if cfg.Subtitle.ASRLang != "auto" {
		t.Errorf("default asr lang: got %q", cfg.Subtitle.ASRLang)
	}
	if cfg.Recording.Dir != "recordings" {
		t.Errorf("default recording dir: got %q", cfg.Recording.Dir)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("bogus_key: true\n"))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "bad log level",
			yaml: "server:\n  log_level: verbose\n",
			want: "log_level",
		},
		{
			name: "negative chunk",
			yaml: "audio:\n  chunk_ms: -1\n",
			want: "chunk_ms",
		},
		{
			name: "unknown provider",
			yaml: "providers:\n  asr:\n    name: siri\n",
			want: "providers.asr.name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

// Command realtime-caption is the realtime caption relay server: it receives
// PCM audio over a websocket, segments it with VAD, transcribes and optionally
// translates each utterance, and fans the subtitles out to subscribers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/orangeburn/Realtime-Caption/internal/caption"
	"github.com/orangeburn/Realtime-Caption/internal/config"
	"github.com/orangeburn/Realtime-Caption/internal/health"
	"github.com/orangeburn/Realtime-Caption/internal/observe"
	"github.com/orangeburn/Realtime-Caption/internal/recording"
	"github.com/orangeburn/Realtime-Caption/internal/relay"
	"github.com/orangeburn/Realtime-Caption/internal/resilience"
	"github.com/orangeburn/Realtime-Caption/pkg/audio/wav"
	"github.com/orangeburn/Realtime-Caption/pkg/provider/asr"
	"github.com/orangeburn/Realtime-Caption/pkg/provider/asr/funasr"
	"github.com/orangeburn/Realtime-Caption/pkg/provider/translate"
	"github.com/orangeburn/Realtime-Caption/pkg/provider/translate/nllb"
	oaixlate "github.com/orangeburn/Realtime-Caption/pkg/provider/translate/openai"
	"github.com/orangeburn/Realtime-Caption/pkg/provider/vad"
	"github.com/orangeburn/Realtime-Caption/pkg/provider/vad/fsmn"
)

// version is injected at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "realtime-caption: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "realtime-caption: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel := new(slog.LevelVar)
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("realtime-caption starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "realtime-caption",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	vadEngine, err := buildVAD(cfg.Providers.VAD)
	if err != nil {
		slog.Error("failed to build vad provider", "err", err)
		return 1
	}
	asrEngine, err := buildASR(cfg)
	if err != nil {
		slog.Error("failed to build asr provider", "err", err)
		return 1
	}
	translator := caption.NewTranslator(translateFactory(cfg.Providers.Translate))

	// ── Core components ───────────────────────────────────────────────────────
	recorder := recording.NewManager(recording.Config{
		Dir: cfg.Recording.Dir,
		Format: wav.Format{
			SampleRate:     cfg.Audio.SampleRate,
			Channels:       1,
			BytesPerSample: 2,
		},
		Stereo: cfg.Recording.Stereo,
	})

	hub := relay.NewHub(relay.Config{
		SampleRate:        cfg.Audio.SampleRate,
		ChunkMs:           cfg.Audio.ChunkMs,
		MaxEndSilenceMs:   cfg.Audio.MaxEndSilenceMs,
		DefaultTargetLang: cfg.Subtitle.DefaultTargetLang,
		DefaultASRLang:    cfg.Subtitle.ASRLang,
		RecordingsDir:     cfg.Recording.Dir,
	}, vadEngine, caption.NewPipeline(asrEngine, caption.WithSourceLang(cfg.Subtitle.DefaultSourceLang)), translator, recorder)

	// ── HTTP routes ───────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	hub.Register(mux)
	translator.RegisterControl(mux)
	health.New(healthCheckers(cfg)...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := observe.Middleware(observe.DefaultMetrics())(mux)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── Config watcher ────────────────────────────────────────────────────────
	// Log level applies live; everything else needs a restart.
	watcher, err := config.NewWatcher(*configPath, func(old, next *config.Config) {
		if old.Server.LogLevel != next.Server.LogLevel {
			logLevel.Set(slogLevel(next.Server.LogLevel))
			slog.Info("log level changed", "log_level", next.Server.LogLevel)
		}
		slog.Info("configuration file reloaded; restart to apply remaining changes")
	})
	if err != nil {
		slog.Warn("config watcher unavailable", "err", err)
	} else {
		defer watcher.Stop()
	}

	printStartupSummary(cfg)

	// ── Serve ─────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server ready; press Ctrl+C to shut down")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

func buildVAD(entry config.ProviderEntry) (vad.Engine, error) {
	switch entry.Name {
	case "fsmn", "":
		url := entry.BaseURL
		if url == "" {
			url = "http://localhost:10096"
		}
		return fsmn.New(url)
	default:
		return nil, fmt.Errorf("unknown vad provider %q", entry.Name)
	}
}

func buildASR(cfg *config.Config) (asr.Engine, error) {
	entry := cfg.Providers.ASR
	switch entry.Name {
	case "funasr", "":
		url := entry.BaseURL
		if url == "" {
			url = "http://localhost:10095"
		}
		opts := []funasr.Option{
			funasr.WithLanguage(cfg.Subtitle.ASRLang),
			funasr.WithSampleRate(cfg.Audio.SampleRate),
		}
		if optBool(entry.Options, "use_itn") {
			opts = append(opts, funasr.WithUseITN(true))
		}
		primary, err := funasr.New(url, opts...)
		if err != nil {
			return nil, err
		}
		fb := resilience.NewASRFallback(primary, "funasr", resilience.FallbackConfig{})
		if standby := optString(entry.Options, "standby_url"); standby != "" {
			engine, err := funasr.New(standby, opts...)
			if err != nil {
				return nil, fmt.Errorf("standby asr server: %w", err)
			}
			fb.AddFallback("funasr-standby", engine)
		}
		return fb, nil
	default:
		return nil, fmt.Errorf("unknown asr provider %q", entry.Name)
	}
}

// translateFactory defers backend construction until the first load request so
// the server starts without translation resources.
func translateFactory(entry config.ProviderEntry) caption.EngineFactory {
	return func(context.Context) (translate.Engine, error) {
		var (
			primary translate.Engine
			err     error
		)
		switch entry.Name {
		case "nllb", "":
			url := entry.BaseURL
			if url == "" {
				url = "http://localhost:8000"
			}
			primary, err = nllb.New(url)
		case "openai":
			opts := []oaixlate.Option{}
			if entry.Model != "" {
				opts = append(opts, oaixlate.WithModel(entry.Model))
			}
			if entry.BaseURL != "" {
				opts = append(opts, oaixlate.WithBaseURL(entry.BaseURL))
			}
			primary, err = oaixlate.New(entry.APIKey, opts...)
		default:
			return nil, fmt.Errorf("unknown translate provider %q", entry.Name)
		}
		if err != nil {
			return nil, err
		}

		// A hosted API can back a local NLLB server for outages.
		fb := resilience.NewTranslateFallback(primary, entry.Name, resilience.FallbackConfig{})
		if key := optString(entry.Options, "fallback_api_key"); key != "" && entry.Name != "openai" {
			engine, err := oaixlate.New(key)
			if err != nil {
				return nil, fmt.Errorf("fallback translate backend: %w", err)
			}
			fb.AddFallback("openai", engine)
		}
		return fb, nil
	}
}

// ── Health checks ─────────────────────────────────────────────────────────────

func healthCheckers(cfg *config.Config) []health.Checker {
	return []health.Checker{
		{
			Name: "recordings-dir",
			Check: func(context.Context) error {
				return os.MkdirAll(cfg.Recording.Dir, 0o755)
			},
		},
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║   Realtime-Caption startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("VAD", cfg.Providers.VAD.Name, "")
	printProvider("ASR", cfg.Providers.ASR.Name, cfg.Providers.ASR.Model)
	printProvider("Translate", cfg.Providers.Translate.Name, cfg.Providers.Translate.Model)
	fmt.Printf("║  Sample rate     : %-19s ║\n", fmt.Sprintf("%d Hz", cfg.Audio.SampleRate))
	fmt.Printf("║  Recordings dir  : %-19s ║\n", clip(cfg.Recording.Dir, 19))
	fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(default)"
	} else if model != "" {
		value = name + " / " + model
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, clip(value, 19))
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "…"
	}
	return s
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optBool extracts a boolean from a provider Options map. Returns false if the
// map is nil, the key is absent, or the value is not a bool.
func optBool(opts map[string]any, key string) bool {
	if opts == nil {
		return false
	}
	v, ok := opts[key].(bool)
	return ok && v
}

// optString extracts a string from a provider Options map. Returns "" if the
// map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}

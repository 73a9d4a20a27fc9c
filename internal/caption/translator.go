package caption

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/orangeburn/Realtime-Caption/internal/observe"
	"github.com/orangeburn/Realtime-Caption/pkg/provider/translate"
)

// LoadState describes the lifecycle of the lazily-activated translation
// backend.
type LoadState int

const (
	// StateUnloaded means no backend is active; Translate returns empty.
	StateUnloaded LoadState = iota

	// StateLoading means a load is in flight; Translate returns empty
	// rather than waiting.
	StateLoading

	// StateReady means the backend is active.
	StateReady
)

// String returns the wire representation of the state.
func (s LoadState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unloaded"
	}
}

// EngineFactory constructs the translation backend on demand. It may be slow
// (model download, warm-up); the Translator guarantees a single in-flight
// call.
type EngineFactory func(ctx context.Context) (translate.Engine, error)

// TranslatorOption configures a [Translator].
type TranslatorOption func(*Translator)

// WithTranslatorMetrics overrides the metrics instance. The default is
// [observe.DefaultMetrics].
func WithTranslatorMetrics(m *observe.Metrics) TranslatorOption {
	return func(t *Translator) {
		if m != nil {
			t.metrics = m
		}
	}
}

// Translator wraps a lazily-loaded translation backend and the
// connection-scoped last-utterance memo. Translation is strictly best-effort:
// while the backend is unloaded or loading, Translate returns an empty string
// so the original-language subtitle is never delayed.
//
// All methods are safe for concurrent use.
type Translator struct {
	factory EngineFactory
	metrics *observe.Metrics
	group   singleflight.Group

	mu     sync.Mutex
	state  LoadState
	engine translate.Engine

	lastPlain string
	lastInfo  string
	lastSrc   string
	hasLast   bool
}

// NewTranslator creates a translator in the unloaded state.
func NewTranslator(factory EngineFactory, opts ...TranslatorOption) *Translator {
	t := &Translator{
		factory: factory,
		metrics: observe.DefaultMetrics(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns the current loader state.
func (t *Translator) State() LoadState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Load activates the translation backend. Concurrent calls share a single
// in-flight load; callers all observe its outcome. Loading an already-ready
// translator is a no-op.
func (t *Translator) Load(ctx context.Context) error {
	t.mu.Lock()
	if t.state == StateReady {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	_, err, _ := t.group.Do("load", func() (any, error) {
		t.mu.Lock()
		if t.state == StateReady {
			t.mu.Unlock()
			return nil, nil
		}
		t.state = StateLoading
		t.mu.Unlock()

		engine, err := t.factory(ctx)

		t.mu.Lock()
		defer t.mu.Unlock()
		if err != nil {
			t.state = StateUnloaded
			t.engine = nil
			return nil, fmt.Errorf("caption: load translation backend: %w", err)
		}
		t.engine = engine
		t.state = StateReady
		return nil, nil
	})
	return err
}

// Unload discards the backend. In-flight Translate calls that already
// captured the engine finish normally; subsequent calls return empty.
func (t *Translator) Unload() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateLoading {
		return
	}
	t.engine = nil
	t.state = StateUnloaded
}

// Translate renders text into tgtLang. Short wire codes are mapped to NLLB
// codes first. An empty result means translation was unavailable or failed;
// callers deliver the original-language subtitle regardless.
func (t *Translator) Translate(ctx context.Context, text, srcLang, tgtLang string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	t.mu.Lock()
	engine := t.engine
	ready := t.state == StateReady
	t.mu.Unlock()
	if !ready || engine == nil {
		return ""
	}

	start := time.Now()
	out, err := engine.Translate(ctx, text, translate.NLLBCode(srcLang), translate.NLLBCode(tgtLang))
	t.metrics.TranslateDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		t.metrics.RecordProviderError(ctx, "translate", "translate")
		observe.Logger(ctx).Warn("translation failed", "tgt_lang", tgtLang, "err", err)
		return ""
	}
	return out
}

// Remember stores the most recent utterance and its source language so a
// language switch can be re-served without new speech.
func (t *Translator) Remember(plain, info, srcLang string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastPlain = plain
	t.lastInfo = info
	t.lastSrc = srcLang
	t.hasLast = true
}

// LastUtterance returns the memoized utterance, if any.
func (t *Translator) LastUtterance() (plain, info, srcLang string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastPlain, t.lastInfo, t.lastSrc, t.hasLast
}

// controlResponse is the JSON body for the translation control endpoints.
type controlResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// RegisterControl adds the translation backend control routes to mux:
// POST /translation/load, POST /translation/unload, GET /translation/status.
func (t *Translator) RegisterControl(mux *http.ServeMux) {
	mux.HandleFunc("POST /translation/load", func(w http.ResponseWriter, r *http.Request) {
		if err := t.Load(r.Context()); err != nil {
			writeControl(w, http.StatusInternalServerError, controlResponse{
				Success: false,
				Status:  t.State().String(),
				Message: err.Error(),
			})
			return
		}
		writeControl(w, http.StatusOK, controlResponse{Success: true, Status: t.State().String()})
	})
	mux.HandleFunc("POST /translation/unload", func(w http.ResponseWriter, _ *http.Request) {
		t.Unload()
		writeControl(w, http.StatusOK, controlResponse{Success: true, Status: t.State().String()})
	})
	mux.HandleFunc("GET /translation/status", func(w http.ResponseWriter, _ *http.Request) {
		writeControl(w, http.StatusOK, controlResponse{Success: true, Status: t.State().String()})
	})
}

func writeControl(w http.ResponseWriter, status int, res controlResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		http.Error(w, `{"success":false}`, http.StatusInternalServerError)
	}
}

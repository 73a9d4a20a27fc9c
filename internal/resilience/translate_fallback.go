package resilience

import (
	"context"

	"github.com/orangeburn/Realtime-Caption/pkg/provider/translate"
)

// TranslateFallback implements [translate.Engine] with automatic failover
// across multiple translation backends, e.g. a local NLLB server backed by a
// hosted API. Each backend has its own circuit breaker.
type TranslateFallback struct {
	group *FallbackGroup[translate.Engine]
}

// Compile-time interface assertion.
var _ translate.Engine = (*TranslateFallback)(nil)

// NewTranslateFallback creates a [TranslateFallback] with primary as the
// preferred backend.
func NewTranslateFallback(primary translate.Engine, primaryName string, cfg FallbackConfig) *TranslateFallback {
	return &TranslateFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional translation backend.
func (f *TranslateFallback) AddFallback(name string, engine translate.Engine) {
	f.group.AddFallback(name, engine)
}

// Translate renders text on the first healthy backend.
func (f *TranslateFallback) Translate(ctx context.Context, text, srcLang, tgtLang string) (string, error) {
	return ExecuteWithResult(f.group, func(e translate.Engine) (string, error) {
		return e.Translate(ctx, text, srcLang, tgtLang)
	})
}

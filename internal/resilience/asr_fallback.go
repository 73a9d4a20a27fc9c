package resilience

import (
	"context"

	"github.com/orangeburn/Realtime-Caption/pkg/provider/asr"
)

// ASRFallback implements [asr.Engine] with automatic failover across multiple
// recognition backends, e.g. a primary inference server and a standby replica.
// Each backend has its own circuit breaker.
type ASRFallback struct {
	group *FallbackGroup[asr.Engine]
}

// Compile-time interface assertion.
var _ asr.Engine = (*ASRFallback)(nil)

// NewASRFallback creates an [ASRFallback] with primary as the preferred backend.
func NewASRFallback(primary asr.Engine, primaryName string, cfg FallbackConfig) *ASRFallback {
	return &ASRFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional recognition backend.
func (f *ASRFallback) AddFallback(name string, engine asr.Engine) {
	f.group.AddFallback(name, engine)
}

// Recognize transcribes the segment on the first healthy backend.
func (f *ASRFallback) Recognize(ctx context.Context, samples []float32, lang string) ([]asr.Result, error) {
	return ExecuteWithResult(f.group, func(e asr.Engine) ([]asr.Result, error) {
		return e.Recognize(ctx, samples, lang)
	})
}

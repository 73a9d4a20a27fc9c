package caption

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/orangeburn/Realtime-Caption/internal/observe"
	"github.com/orangeburn/Realtime-Caption/pkg/provider/asr"
	"github.com/orangeburn/Realtime-Caption/pkg/provider/translate"
)

// Result is the normalized output of one recognition call. A zero Result
// (empty PlainText) means the segment produced nothing worth forwarding.
type Result struct {
	// PlainText is the transcript with all markers stripped.
	PlainText string

	// InfoText is PlainText additionally filtered down to translatable
	// characters.
	InfoText string

	// SourceLang is the detected spoken language as an NLLB code.
	SourceLang string
}

// Empty reports whether the result carries no usable text.
func (r Result) Empty() bool {
	return r.PlainText == ""
}

// PipelineOption configures a [Pipeline].
type PipelineOption func(*Pipeline)

// WithPipelineMetrics overrides the metrics instance. The default is
// [observe.DefaultMetrics].
func WithPipelineMetrics(m *observe.Metrics) PipelineOption {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithSourceLang sets the short language code assumed when the transcript
// carries no leading language tag. The default is "zh".
func WithSourceLang(short string) PipelineOption {
	return func(p *Pipeline) {
		if short != "" {
			p.srcLang = short
		}
	}
}

// Pipeline drives the ASR collaborator and normalizes its tagged output.
type Pipeline struct {
	engine  asr.Engine
	srcLang string
	metrics *observe.Metrics
}

// NewPipeline creates a pipeline over the given recognition engine.
func NewPipeline(engine asr.Engine, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		engine:  engine,
		srcLang: "zh",
		metrics: observe.DefaultMetrics(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Recognize transcribes one speech segment and returns the normalized result.
// Blank or whitespace-only transcripts yield an empty Result with a nil
// error; callers must not push those downstream.
func (p *Pipeline) Recognize(ctx context.Context, samples []float32, langHint string) (Result, error) {
	start := time.Now()
	results, err := p.engine.Recognize(ctx, samples, strings.TrimSpace(langHint))
	p.metrics.ASRDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordProviderError(ctx, "asr", "recognize")
		return Result{}, fmt.Errorf("caption: recognize: %w", err)
	}
	if len(results) == 0 {
		return Result{}, nil
	}

	raw := results[0].Text
	plain := StripTags(CollapseMarkers(raw))
	if strings.TrimSpace(plain) == "" {
		return Result{}, nil
	}

	return Result{
		PlainText:  plain,
		InfoText:   CleanForTranslate(plain),
		SourceLang: p.sourceCode(ExtractLang(raw)),
	}, nil
}

// sourceCode maps a short detected language code to its NLLB code. An absent
// tag or a code outside the known table falls back to the configured default
// source language.
func (p *Pipeline) sourceCode(short string) string {
	if short != "" {
		if code := translate.NLLBCode(short); code != short {
			return code
		}
	}
	return translate.NLLBCode(p.srcLang)
}

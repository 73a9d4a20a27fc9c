// Package observe provides application-wide observability primitives for the
// caption relay: OpenTelemetry metrics, distributed tracing, structured
// logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all caption metrics.
const meterName = "github.com/orangeburn/Realtime-Caption"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// VADDuration tracks voice-activity-detection latency per audio window.
	VADDuration metric.Float64Histogram

	// ASRDuration tracks speech recognition latency per segment.
	ASRDuration metric.Float64Histogram

	// TranslateDuration tracks translation latency per utterance.
	TranslateDuration metric.Float64Histogram

	// PipelineDuration tracks end-to-end latency from segment close to
	// subtitle push.
	PipelineDuration metric.Float64Histogram

	// --- Counters ---

	// SegmentsExtracted counts closed speech segments handed to recognition.
	SegmentsExtracted metric.Int64Counter

	// SubtitlesPushed counts subtitle payloads delivered to subscribers. Use
	// with attribute: attribute.String("lang", ...)
	SubtitlesPushed metric.Int64Counter

	// FramesDropped counts audio frames discarded because no consumer kept
	// up. Use with attribute: attribute.String("reason", ...)
	FramesDropped metric.Int64Counter

	// MalformedCommands counts discarded client messages that failed to
	// decode. Use with attribute: attribute.String("endpoint", ...)
	MalformedCommands metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSubscribers tracks the number of connected subtitle subscribers.
	ActiveSubscribers metric.Int64UpDownCounter

	// ActiveUploaders tracks the number of connected audio uploaders.
	ActiveUploaders metric.Int64UpDownCounter

	// ActiveRecordings tracks the number of recording sessions in progress.
	ActiveRecordings metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for realtime caption latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.VADDuration, err = m.Float64Histogram("caption.vad.duration",
		metric.WithDescription("Latency of voice activity detection per window."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ASRDuration, err = m.Float64Histogram("caption.asr.duration",
		metric.WithDescription("Latency of speech recognition per segment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranslateDuration, err = m.Float64Histogram("caption.translate.duration",
		metric.WithDescription("Latency of translation per utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineDuration, err = m.Float64Histogram("caption.pipeline.duration",
		metric.WithDescription("End-to-end latency from segment close to subtitle push."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.SegmentsExtracted, err = m.Int64Counter("caption.segments.extracted",
		metric.WithDescription("Total closed speech segments handed to recognition."),
	); err != nil {
		return nil, err
	}
	if met.SubtitlesPushed, err = m.Int64Counter("caption.subtitles.pushed",
		metric.WithDescription("Total subtitle payloads delivered, by language."),
	); err != nil {
		return nil, err
	}
	if met.FramesDropped, err = m.Int64Counter("caption.frames.dropped",
		metric.WithDescription("Total audio frames discarded, by reason."),
	); err != nil {
		return nil, err
	}
	if met.MalformedCommands, err = m.Int64Counter("caption.commands.malformed",
		metric.WithDescription("Total client messages discarded for failing to decode, by endpoint."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("caption.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSubscribers, err = m.Int64UpDownCounter("caption.active_subscribers",
		metric.WithDescription("Number of connected subtitle subscribers."),
	); err != nil {
		return nil, err
	}
	if met.ActiveUploaders, err = m.Int64UpDownCounter("caption.active_uploaders",
		metric.WithDescription("Number of connected audio uploaders."),
	); err != nil {
		return nil, err
	}
	if met.ActiveRecordings, err = m.Int64UpDownCounter("caption.active_recordings",
		metric.WithDescription("Number of recording sessions in progress."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("caption.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordSubtitle records a pushed subtitle counter increment for the given
// target language.
func (m *Metrics) RecordSubtitle(ctx context.Context, lang string) {
	m.SubtitlesPushed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("lang", lang)),
	)
}

// RecordDroppedFrame records a discarded audio frame counter increment.
func (m *Metrics) RecordDroppedFrame(ctx context.Context, reason string) {
	m.FramesDropped.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordMalformedCommand records a discarded client message counter
// increment for the given endpoint.
func (m *Metrics) RecordMalformedCommand(ctx context.Context, endpoint string) {
	m.MalformedCommands.Add(ctx, 1,
		metric.WithAttributes(attribute.String("endpoint", endpoint)),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// Package segment turns a continuous PCM byte stream into discrete,
// voice-bounded audio segments.
//
// The extractor accumulates raw little-endian int16 bytes, converts them to
// float32 samples, splits them into fixed-duration analysis windows, and runs
// each window through a [vad.Stream]. Detector boundary updates are paired and
// converted into sample-accurate slices of the rolling buffer. One extractor
// serves exactly one uploader connection; state is not shared.
package segment

import (
	"context"
	"time"

	"github.com/orangeburn/Realtime-Caption/internal/observe"
	"github.com/orangeburn/Realtime-Caption/pkg/audio"
	"github.com/orangeburn/Realtime-Caption/pkg/provider/vad"
)

// Segment is a contiguous span of speech cut out of the rolling buffer.
// Samples are owned by the receiver; the extractor never touches them again.
type Segment struct {
	// Samples holds the mono float32 audio of the span.
	Samples []float32

	// BeginSample and EndSample are the span's indices into the rolling
	// buffer at the moment it was cut, [BeginSample, EndSample).
	BeginSample int
	EndSample   int

	// Offset is the position of the span start within the not-yet-consumed
	// audio, i.e. BeginSample at the configured sample rate.
	Offset time.Duration
}

// Config holds the extractor parameters.
type Config struct {
	// SampleRate is the PCM sample rate in Hz.
	SampleRate int

	// ChunkMs is the analysis window duration in milliseconds.
	ChunkMs int

	// MaxEndSilenceMs is passed through to the detector.
	MaxEndSilenceMs int
}

// Option configures an [Extractor].
type Option func(*Extractor)

// WithMetrics overrides the metrics instance used for VAD latency and segment
// counters. The default is [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Extractor) {
		if m != nil {
			e.metrics = m
		}
	}
}

// Extractor converts a PCM byte stream into [Segment] values. It is not safe
// for concurrent use; exactly one goroutine (the uploader handler) feeds it.
type Extractor struct {
	stream     vad.Stream
	sampleRate int
	chunkSize  int // samples per analysis window
	metrics    *observe.Metrics

	rem     []byte    // trailing odd byte from the last Feed
	pending []float32 // decoded samples not yet windowed
	vadBuf  []float32 // windowed samples awaiting a resolved boundary

	lastBeg float64 // ms, vad.Unknown when unresolved
	lastEnd float64 // ms, vad.Unknown when unresolved
	offset  float64 // ms already consumed from the detector timeline
}

// New creates an extractor backed by a fresh detection stream from engine.
func New(engine vad.Engine, cfg Config) (*Extractor, error) {
	stream, err := engine.NewStream(vad.Config{
		SampleRate:      cfg.SampleRate,
		WindowMs:        cfg.ChunkMs,
		MaxEndSilenceMs: cfg.MaxEndSilenceMs,
	})
	if err != nil {
		return nil, err
	}

	e := &Extractor{
		stream:     stream,
		sampleRate: cfg.SampleRate,
		chunkSize:  cfg.SampleRate * cfg.ChunkMs / 1000,
		metrics:    observe.DefaultMetrics(),
		lastBeg:    vad.Unknown,
		lastEnd:    vad.Unknown,
	}
	return e, nil
}

// NewWithStream creates an extractor around an existing stream. Used by tests
// and callers that manage stream lifecycle themselves.
func NewWithStream(stream vad.Stream, cfg Config, opts ...Option) *Extractor {
	e := &Extractor{
		stream:     stream,
		sampleRate: cfg.SampleRate,
		chunkSize:  cfg.SampleRate * cfg.ChunkMs / 1000,
		metrics:    observe.DefaultMetrics(),
		lastBeg:    vad.Unknown,
		lastEnd:    vad.Unknown,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Feed consumes a frame of raw PCM bytes and returns the segments whose
// boundaries resolved during this call. Frames may be split mid-sample; the
// dangling byte is carried to the next call. Detector errors are logged and
// the affected window skipped; the stream is never torn down for one bad
// window.
func (e *Extractor) Feed(ctx context.Context, data []byte) []Segment {
	e.rem = append(e.rem, data...)
	decodable, rest := audio.EvenPrefix(e.rem)
	if len(decodable) == 0 {
		return nil
	}
	e.pending = append(e.pending, audio.Float32FromPCM16(decodable)...)
	e.rem = append(e.rem[:0], rest...)

	var segs []Segment
	for len(e.pending) >= e.chunkSize {
		window := e.pending[:e.chunkSize]
		e.pending = e.pending[e.chunkSize:]
		e.vadBuf = append(e.vadBuf, window...)

		start := time.Now()
		boundaries, err := e.stream.Detect(window)
		e.metrics.VADDuration.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			observe.Logger(ctx).Warn("vad window skipped", "err", err)
			e.metrics.RecordProviderError(ctx, "vad", "detect")
			continue
		}

		for _, b := range boundaries {
			if seg, ok := e.apply(ctx, b); ok {
				e.metrics.SegmentsExtracted.Add(ctx, 1)
				segs = append(segs, seg)
			}
		}
	}
	return segs
}

// apply folds one boundary update into the pairing state and, when both sides
// are resolved, cuts the segment out of the rolling buffer.
func (e *Extractor) apply(ctx context.Context, b vad.Boundary) (Segment, bool) {
	if b.BeginMs > vad.Unknown {
		e.lastBeg = b.BeginMs
	}
	if b.EndMs > vad.Unknown {
		e.lastEnd = b.EndMs
	}
	if e.lastBeg <= vad.Unknown || e.lastEnd <= vad.Unknown {
		return Segment{}, false
	}

	// Detector timestamps are absolute on its own timeline; shift them into
	// the not-yet-consumed portion of the buffer and clamp negatives.
	adjBeg := max(0, e.lastBeg-e.offset)
	adjEnd := max(0, e.lastEnd-e.offset)

	if adjEnd <= adjBeg {
		observe.Logger(ctx).Debug("discarding invalid vad boundary", "begin_ms", adjBeg, "end_ms", adjEnd)
		e.lastBeg, e.lastEnd = vad.Unknown, vad.Unknown
		return Segment{}, false
	}

	e.offset += adjEnd
	beg := int(adjBeg * float64(e.sampleRate) / 1000)
	end := int(adjEnd * float64(e.sampleRate) / 1000)
	if end > len(e.vadBuf) {
		end = len(e.vadBuf)
	}
	if beg > end {
		beg = end
	}

	if end-beg <= 0 {
		// Degenerate span. The consumed region still advances so the same
		// audio is never reprocessed.
		if end > 0 {
			e.vadBuf = e.vadBuf[end:]
		}
		e.lastBeg, e.lastEnd = vad.Unknown, vad.Unknown
		return Segment{}, false
	}

	samples := make([]float32, end-beg)
	copy(samples, e.vadBuf[beg:end])
	e.vadBuf = e.vadBuf[end:]
	e.lastBeg, e.lastEnd = vad.Unknown, vad.Unknown

	return Segment{
		Samples:     samples,
		BeginSample: beg,
		EndSample:   end,
		Offset:      time.Duration(beg) * time.Second / time.Duration(e.sampleRate),
	}, true
}

// Reset drops all buffered audio and pairing state and resets the detector
// stream. Use when the uploader reconnects on the same extractor.
func (e *Extractor) Reset() {
	e.rem = e.rem[:0]
	e.pending = e.pending[:0]
	e.vadBuf = e.vadBuf[:0]
	e.lastBeg, e.lastEnd = vad.Unknown, vad.Unknown
	e.offset = 0
	e.stream.Reset()
}

// Close releases the detection stream.
func (e *Extractor) Close() error {
	return e.stream.Close()
}

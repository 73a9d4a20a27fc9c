// Package vad defines the Engine interface for streaming voice-activity
// detection backends.
//
// A VAD engine wraps a segment-level speech detector (e.g. FSMN-VAD served by
// a FunASR runtime) and surfaces it as a stateful per-connection stream. Each
// stream owns a detector cache that the backend mutates between windows, so
// multiple concurrent audio connections can be processed independently.
//
// Detection is synchronous: Detect returns boundary updates for one
// fixed-duration window immediately, which keeps the stage that gates ASR
// input low-latency.
//
// Implementations must be safe for concurrent use across different streams.
// A single Stream must not be shared across goroutines unless the
// implementation explicitly documents otherwise.
package vad

// Config holds the parameters for a VAD stream.
type Config struct {
	// SampleRate is the audio sample rate in Hz of the windows passed to
	// Detect. Common values: 8000, 16000.
	SampleRate int

	// WindowMs is the duration of each analysis window in milliseconds.
	// Detect expects windows of exactly this length; most segment-level
	// detectors operate on 300–800 ms windows.
	WindowMs int

	// MaxEndSilenceMs is how much trailing silence (in milliseconds) the
	// detector tolerates before it closes an utterance. Zero selects the
	// backend default.
	MaxEndSilenceMs int
}

// Boundary is a speech interval update emitted by the detector. Timestamps are
// in milliseconds on the detector's own monotonically increasing timeline.
// A side the detector has not resolved yet is reported as Unknown (-1); the
// caller pairs updates until both sides are known.
type Boundary struct {
	BeginMs float64
	EndMs   float64
}

// Unknown marks an unresolved boundary side.
const Unknown = -1

// Resolved reports whether both sides of the boundary are known.
func (b Boundary) Resolved() bool {
	return b.BeginMs > Unknown && b.EndMs > Unknown
}

// Stream is an active detection stream for a single audio connection. It
// carries the detector cache across windows; Reset clears that state without
// closing the stream.
type Stream interface {
	// Detect analyses one window of mono float32 samples in [-1, 1] and
	// returns zero or more boundary updates. The window length must match the
	// Config the stream was created with. Detect must not block beyond the
	// inference call itself.
	Detect(window []float32) ([]Boundary, error)

	// Reset clears accumulated detector state. Use when the audio stream is
	// interrupted or restarted so stale state from the previous connection
	// does not leak into the next.
	Reset()

	// Close releases stream resources. Calling Close more than once is safe
	// and returns nil.
	Close() error
}

// Engine is the factory for VAD streams, implemented by each backend.
//
// Implementations must be safe for concurrent use: multiple goroutines may
// call NewStream simultaneously to create independent streams.
type Engine interface {
	// NewStream creates a detection stream with the given configuration.
	// Returns an error if the configuration is invalid or the backend cannot
	// allocate stream state.
	NewStream(cfg Config) (Stream, error)
}

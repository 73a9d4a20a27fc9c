// Package asr defines the Engine interface for batch speech recognition
// backends.
//
// An ASR engine wraps a segment-level recognizer (e.g. SenseVoice behind a
// FunASR inference server). The relay hands it one voice-bounded audio
// segment at a time and receives the raw tagged transcript back; inline
// language, emotion, and event markers included. Normalization of that text is
// the caller's concern, not the engine's.
//
// Implementations must be safe for concurrent use; a connection may issue the
// next Recognize call while a previous one is still being logged.
package asr

import "context"

// Result is one raw recognition hypothesis.
type Result struct {
	// Text is the transcript as produced by the model, tags included
	// (e.g. "<|zh|><|NEUTRAL|><|Speech|>你好").
	Text string
}

// Engine is the abstraction over any segment-level recognition backend.
type Engine interface {
	// Recognize transcribes one segment of mono float32 samples in [-1, 1].
	// lang is the recognition language hint ("auto" lets the model detect).
	// An empty result slice means the model produced no hypothesis for this
	// segment; callers treat that the same as blank text.
	Recognize(ctx context.Context, samples []float32, lang string) ([]Result, error)
}

// Package mock provides a test double for the asr package interfaces.
//
// Use Engine to script transcripts per call and inspect the segments that
// were submitted for recognition.
package mock

import (
	"context"
	"sync"

	"github.com/orangeburn/Realtime-Caption/pkg/provider/asr"
)

// RecognizeCall records a single invocation of Engine.Recognize.
type RecognizeCall struct {
	// Samples is a copy of the segment passed to Recognize.
	Samples []float32

	// Lang is the language hint passed to Recognize.
	Lang string
}

// Engine is a mock implementation of asr.Engine. Each Recognize call consumes
// the next entry of Script; once exhausted, Recognize returns no results.
type Engine struct {
	mu sync.Mutex

	// Script holds the results returned by successive Recognize calls.
	Script [][]asr.Result

	// RecognizeFunc, if non-nil, is invoked instead of consuming Script.
	// The call is still recorded.
	RecognizeFunc func(ctx context.Context, samples []float32, lang string) ([]asr.Result, error)

	// RecognizeErr, if non-nil, is returned by every Recognize call.
	RecognizeErr error

	// RecognizeCalls records every call to Recognize in order.
	RecognizeCalls []RecognizeCall

	next int
}

// Recognize records the call and returns the next scripted result batch.
func (e *Engine) Recognize(ctx context.Context, samples []float32, lang string) ([]asr.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make([]float32, len(samples))
	copy(cp, samples)
	e.RecognizeCalls = append(e.RecognizeCalls, RecognizeCall{Samples: cp, Lang: lang})
	if e.RecognizeFunc != nil {
		return e.RecognizeFunc(ctx, cp, lang)
	}
	if e.RecognizeErr != nil {
		return nil, e.RecognizeErr
	}
	if e.next >= len(e.Script) {
		return nil, nil
	}
	out := e.Script[e.next]
	e.next++
	return out, nil
}

// ResetCalls clears all recorded call history and rewinds the script.
func (e *Engine) ResetCalls() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.RecognizeCalls = nil
	e.next = 0
}

// Ensure Engine implements asr.Engine at compile time.
var _ asr.Engine = (*Engine)(nil)

// Package mock provides test doubles for the vad package interfaces.
//
// Use Engine to verify that streams are created with the expected Config.
// Use Stream to script Boundary responses per window and inspect the windows
// that were submitted for detection.
//
// Example:
//
//	st := &mock.Stream{
//	    Script: [][]vad.Boundary{{{BeginMs: 100, EndMs: vad.Unknown}}},
//	}
//	eng := &mock.Engine{Stream: st}
//	s, _ := eng.NewStream(cfg)
package mock

import (
	"sync"

	"github.com/orangeburn/Realtime-Caption/pkg/provider/vad"
)

// NewStreamCall records a single invocation of Engine.NewStream.
type NewStreamCall struct {
	// Cfg is the Config passed to NewStream.
	Cfg vad.Config
}

// Engine is a mock implementation of vad.Engine.
type Engine struct {
	mu sync.Mutex

	// Stream is returned by NewStream. If nil, NewStream returns a new
	// default Stream.
	Stream vad.Stream

	// NewStreamErr, if non-nil, is returned as the error from NewStream.
	NewStreamErr error

	// NewStreamCalls records every call to NewStream in order.
	NewStreamCalls []NewStreamCall
}

// NewStream records the call and returns Stream, NewStreamErr.
func (e *Engine) NewStream(cfg vad.Config) (vad.Stream, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.NewStreamCalls = append(e.NewStreamCalls, NewStreamCall{Cfg: cfg})
	if e.NewStreamErr != nil {
		return nil, e.NewStreamErr
	}
	if e.Stream != nil {
		return e.Stream, nil
	}
	return &Stream{}, nil
}

// ResetCalls clears all recorded calls. Thread-safe.
func (e *Engine) ResetCalls() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.NewStreamCalls = nil
}

// Ensure Engine implements vad.Engine at compile time.
var _ vad.Engine = (*Engine)(nil)

// DetectCall records a single invocation of Stream.Detect.
type DetectCall struct {
	// Window is a copy of the samples passed to Detect.
	Window []float32
}

// Stream is a mock implementation of vad.Stream. Each Detect call consumes the
// next entry of Script; once the script is exhausted Detect returns no
// boundaries.
type Stream struct {
	mu sync.Mutex

	// Script holds the boundary updates returned by successive Detect calls.
	Script [][]vad.Boundary

	// DetectErr, if non-nil, is returned by every Detect call.
	DetectErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// --- Call records ---

	// DetectCalls records every call to Detect in order.
	DetectCalls []DetectCall

	// ResetCallCount is the number of times Reset was called.
	ResetCallCount int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int

	next int
}

// Detect records the call and returns the next scripted boundary batch.
func (s *Stream) Detect(window []float32) ([]vad.Boundary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]float32, len(window))
	copy(cp, window)
	s.DetectCalls = append(s.DetectCalls, DetectCall{Window: cp})
	if s.DetectErr != nil {
		return nil, s.DetectErr
	}
	if s.next >= len(s.Script) {
		return nil, nil
	}
	out := s.Script[s.next]
	s.next++
	return out, nil
}

// Reset records the call by incrementing ResetCallCount.
func (s *Stream) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResetCallCount++
}

// Close records the call and returns CloseErr.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	return s.CloseErr
}

// ResetCalls clears all recorded call history and rewinds the script.
func (s *Stream) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DetectCalls = nil
	s.ResetCallCount = 0
	s.CloseCallCount = 0
	s.next = 0
}

// Ensure Stream implements vad.Stream at compile time.
var _ vad.Stream = (*Stream)(nil)

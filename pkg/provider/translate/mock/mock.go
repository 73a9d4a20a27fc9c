// Package mock provides a test double for the translate package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/orangeburn/Realtime-Caption/pkg/provider/translate"
)

// TranslateCall records a single invocation of Engine.Translate.
type TranslateCall struct {
	Text    string
	SrcLang string
	TgtLang string
}

// Engine is a mock implementation of translate.Engine.
type Engine struct {
	mu sync.Mutex

	// Result is returned by every Translate call. If TranslateFunc is set it
	// takes precedence.
	Result string

	// TranslateFunc, when non-nil, computes the result per call.
	TranslateFunc func(text, srcLang, tgtLang string) (string, error)

	// TranslateErr, if non-nil, is returned by every Translate call.
	TranslateErr error

	// TranslateCalls records every call to Translate in order.
	TranslateCalls []TranslateCall
}

// Translate records the call and returns the scripted result.
func (e *Engine) Translate(_ context.Context, text, srcLang, tgtLang string) (string, error) {
	e.mu.Lock()
	e.TranslateCalls = append(e.TranslateCalls, TranslateCall{Text: text, SrcLang: srcLang, TgtLang: tgtLang})
	fn := e.TranslateFunc
	res, err := e.Result, e.TranslateErr
	e.mu.Unlock()
	if fn != nil {
		return fn(text, srcLang, tgtLang)
	}
	return res, err
}

// ResetCalls clears all recorded call history. Thread-safe.
func (e *Engine) ResetCalls() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.TranslateCalls = nil
}

// Ensure Engine implements translate.Engine at compile time.
var _ translate.Engine = (*Engine)(nil)

// Package fsmn provides a vad.Engine backed by an FSMN-VAD inference server.
//
// It targets the streaming HTTP API exposed by FunASR runtimes hosting an
// fsmn-vad model: each analysis window is POSTed as raw 16-bit PCM together
// with a session identifier, and the server replies with boundary updates on
// the session's timeline. The server keeps the detector cache per session; a
// stream maps one-to-one onto a server session.
//
// Usage:
//
//	eng, err := fsmn.New("http://localhost:10096")
//	stream, err := eng.NewStream(vad.Config{SampleRate: 16000, WindowMs: 300})
//	updates, err := stream.Detect(window)
package fsmn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/xid"

	"github.com/orangeburn/Realtime-Caption/pkg/audio"
	"github.com/orangeburn/Realtime-Caption/pkg/provider/vad"
)

// Compile-time assertions.
var (
	_ vad.Engine = (*Engine)(nil)
	_ vad.Stream = (*Stream)(nil)
)

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithHTTPClient replaces the default HTTP client (10 s timeout). Detection
// sits on the hot path; keep the timeout short.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) {
		e.httpClient = c
	}
}

// Engine implements vad.Engine against an FSMN-VAD HTTP inference server.
// Safe for concurrent use; each stream owns an independent server session.
type Engine struct {
	serverURL  string
	httpClient *http.Client
}

// New creates an Engine that connects to the VAD server at serverURL
// (e.g. "http://localhost:10096"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Engine, error) {
	if serverURL == "" {
		return nil, errors.New("fsmn: serverURL must not be empty")
	}
	e := &Engine{
		serverURL:  serverURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// NewStream opens a new detection session on the server.
func (e *Engine) NewStream(cfg vad.Config) (vad.Stream, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("fsmn: invalid sample rate %d", cfg.SampleRate)
	}
	if cfg.WindowMs <= 0 {
		return nil, fmt.Errorf("fsmn: invalid window duration %dms", cfg.WindowMs)
	}
	return &Stream{
		engine:    e,
		cfg:       cfg,
		sessionID: xid.New().String(),
	}, nil
}

// detectResponse is the JSON body returned per window. Each entry is a
// [beginMs, endMs] pair with -1 marking an unresolved side.
type detectResponse struct {
	Segments [][2]float64 `json:"segments"`
}

// Stream is one detection session. Not safe for concurrent use.
type Stream struct {
	engine    *Engine
	cfg       vad.Config
	sessionID string
	closed    bool
}

// Detect submits one window and returns the server's boundary updates.
func (s *Stream) Detect(window []float32) ([]vad.Boundary, error) {
	if s.closed {
		return nil, errors.New("fsmn: detect on closed stream")
	}
	if len(window) == 0 {
		return nil, nil
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("audio", "window.pcm")
	if err != nil {
		return nil, fmt.Errorf("fsmn: create form file: %w", err)
	}
	if _, err := fw.Write(audio.PCM16FromFloat32(window)); err != nil {
		return nil, fmt.Errorf("fsmn: write pcm data: %w", err)
	}
	if err := mw.WriteField("session_id", s.sessionID); err != nil {
		return nil, fmt.Errorf("fsmn: write session_id field: %w", err)
	}
	if err := mw.WriteField("sample_rate", strconv.Itoa(s.cfg.SampleRate)); err != nil {
		return nil, fmt.Errorf("fsmn: write sample_rate field: %w", err)
	}
	if s.cfg.MaxEndSilenceMs > 0 {
		if err := mw.WriteField("max_end_silence_ms", strconv.Itoa(s.cfg.MaxEndSilenceMs)); err != nil {
			return nil, fmt.Errorf("fsmn: write max_end_silence_ms field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("fsmn: close multipart writer: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.engine.serverURL+"/vad/detect", &body)
	if err != nil {
		return nil, fmt.Errorf("fsmn: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.engine.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fsmn: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fsmn: server returned HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fsmn: read response body: %w", err)
	}

	var dr detectResponse
	if err := json.Unmarshal(data, &dr); err != nil {
		return nil, fmt.Errorf("fsmn: decode response: %w", err)
	}

	out := make([]vad.Boundary, 0, len(dr.Segments))
	for _, seg := range dr.Segments {
		out = append(out, vad.Boundary{BeginMs: seg[0], EndMs: seg[1]})
	}
	return out, nil
}

// Reset drops the server-side detector cache for this session. A failed reset
// is ignored; the server evicts stale sessions on its own.
func (s *Stream) Reset() {
	if s.closed {
		return
	}
	s.postSession("/vad/reset")
}

// Close releases the server-side session. Safe to call more than once.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.postSession("/vad/close")
	return nil
}

// postSession fires a session lifecycle request, ignoring failures.
func (s *Stream) postSession(path string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("session_id", s.sessionID)
	_ = mw.Close()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.engine.serverURL+path, &body)
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := s.engine.httpClient.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

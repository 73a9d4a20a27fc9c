// Package recording implements the session-keyed audio recording state
// machine: start/pause/resume/stop with pause-corrected elapsed time, raw
// chunk buffering, and WAV artifact finalization.
//
// The Manager serializes every operation behind one mutex. Exactly one writer
// (the relay, driven by the uploader's byte stream) appends audio; control
// transitions arrive from the command path on the same connection, so no
// append can be observed half-written by a concurrent stop.
package recording

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/orangeburn/Realtime-Caption/internal/observe"
	"github.com/orangeburn/Realtime-Caption/pkg/audio"
	"github.com/orangeburn/Realtime-Caption/pkg/audio/wav"
)

// Session errors reported back to the caller as structured failures, never as
// panics or dropped connections.
var (
	ErrNotFound      = errors.New("recording: session not found")
	ErrAlreadyExists = errors.New("recording: session already exists")
	ErrAlreadyPaused = errors.New("recording: session already paused")
	ErrNotPaused     = errors.New("recording: session not paused")
	ErrNoAudio       = errors.New("recording: no buffered audio")
)

// Config holds the manager parameters.
type Config struct {
	// Dir is the directory artifacts are written to. Created on demand.
	Dir string

	// Format describes the incoming PCM stream (mono int16 expected).
	Format wav.Format

	// Stereo duplicates the mono stream into two channels in the artifact.
	Stereo bool
}

// Option configures a [Manager].
type Option func(*Manager)

// WithClock overrides the time source. Tests use this to script pause
// durations deterministically.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithMetrics overrides the metrics instance. The default is
// [observe.DefaultMetrics].
func WithMetrics(mx *observe.Metrics) Option {
	return func(m *Manager) {
		if mx != nil {
			m.metrics = mx
		}
	}
}

// session is the per-ID recording state. Paused is encoded by a non-zero
// pauseStart; active and paused are mutually exclusive.
type session struct {
	id          string
	filename    string
	startTime   time.Time
	active      bool
	pauseStart  time.Time
	totalPaused time.Duration
	chunks      [][]byte
	stamps      []time.Time
}

// Manager owns the live session table. Safe for concurrent use.
type Manager struct {
	cfg     Config
	now     func() time.Time
	metrics *observe.Metrics

	mu       sync.Mutex
	sessions map[string]*session
}

// NewManager creates an empty manager.
func NewManager(cfg Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		now:      time.Now,
		metrics:  observe.DefaultMetrics(),
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartInfo is returned by Start.
type StartInfo struct {
	SessionID string
	Filename  string
	StartTime time.Time
}

// Start creates a new active session. An empty sessionID gets a generated ID;
// an empty filename defaults to "recording_<id>.wav". Starting an ID that is
// already in the table is rejected.
func (m *Manager) Start(ctx context.Context, sessionID, filename string) (StartInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessionID == "" {
		sessionID = xid.New().String()
	}
	if _, exists := m.sessions[sessionID]; exists {
		return StartInfo{}, fmt.Errorf("%w: %s", ErrAlreadyExists, sessionID)
	}
	if filename == "" {
		filename = fmt.Sprintf("recording_%s.wav", sessionID)
	}

	s := &session{
		id:        sessionID,
		filename:  filename,
		startTime: m.now(),
		active:    true,
	}
	m.sessions[sessionID] = s
	m.metrics.ActiveRecordings.Add(ctx, 1)
	observe.Logger(ctx).Info("recording session started", "session_id", sessionID, "filename", filename)

	return StartInfo{SessionID: sessionID, Filename: filename, StartTime: s.startTime}, nil
}

// Enabled reports whether any session is actively buffering. The relay uses
// this as the global gate before routing audio into Append.
func (m *Manager) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.active {
			return true
		}
	}
	return false
}

// Append buffers one raw audio chunk into every active session. Paused
// sessions receive nothing. The chunk is copied; callers may reuse data.
func (m *Manager) Append(data []byte) {
	if len(data) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for _, s := range m.sessions {
		if !s.active {
			continue
		}
		cp := make([]byte, len(data))
		copy(cp, data)
		s.chunks = append(s.chunks, cp)
		s.stamps = append(s.stamps, now)
	}
}

// Pause suspends buffering for the session. With an empty sessionID the most
// recently started active session is paused. Pausing a session that is
// already paused is rejected.
func (m *Manager) Pause(ctx context.Context, sessionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.resolve(sessionID, true)
	if s == nil {
		return "", ErrNotFound
	}
	if !s.pauseStart.IsZero() || !s.active {
		return s.id, ErrAlreadyPaused
	}

	s.active = false
	s.pauseStart = m.now()
	observe.Logger(ctx).Info("recording session paused", "session_id", s.id)
	return s.id, nil
}

// Resume reactivates a paused session and folds the pause interval into the
// session's total paused time.
func (m *Manager) Resume(ctx context.Context, sessionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.resolve(sessionID, false)
	if s == nil {
		return "", ErrNotFound
	}
	if s.pauseStart.IsZero() {
		return s.id, ErrNotPaused
	}

	s.totalPaused += m.now().Sub(s.pauseStart)
	s.pauseStart = time.Time{}
	s.active = true
	observe.Logger(ctx).Info("recording session resumed",
		"session_id", s.id, "total_paused", s.totalPaused)
	return s.id, nil
}

// Result is the finalized artifact returned by Stop.
type Result struct {
	SessionID string
	Filename  string
	Path      string

	// Duration is wall-clock time from start to stop, pauses included.
	Duration time.Duration

	// TotalPaused is the accumulated paused time.
	TotalPaused time.Duration

	// FileSize is the artifact size in bytes.
	FileSize int

	// Payload is the complete artifact (header plus PCM), ready to be
	// pushed to the client for download.
	Payload []byte
}

// Stop finalizes the session: a trailing pause is folded exactly as Resume
// would fold it, buffered chunks are concatenated in arrival order, the WAV
// artifact is written to the configured directory, and the session is removed
// from the table. With an empty sessionID the most recently started active
// session is used, falling back to the most recent session of any state.
func (m *Manager) Stop(ctx context.Context, sessionID string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.resolve(sessionID, true)
	if s == nil {
		s = m.resolve(sessionID, false)
	}
	if s == nil {
		return Result{}, ErrNotFound
	}

	if !s.pauseStart.IsZero() {
		s.totalPaused += m.now().Sub(s.pauseStart)
		s.pauseStart = time.Time{}
	}
	endTime := m.now()
	s.active = false

	// The session leaves the table regardless of artifact outcome; no
	// further audio may append under this ID.
	delete(m.sessions, s.id)
	m.metrics.ActiveRecordings.Add(ctx, -1)

	var total int
	for _, c := range s.chunks {
		total += len(c)
	}
	if total == 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrNoAudio, s.id)
	}

	pcm := make([]byte, 0, total)
	for _, c := range s.chunks {
		pcm = append(pcm, c...)
	}

	format := m.cfg.Format
	if m.cfg.Stereo {
		pcm = audio.MonoToStereo(pcm)
		format.Channels = 2
	}
	payload, err := wav.Encode(pcm, format)
	if err != nil {
		return Result{}, fmt.Errorf("recording: encode artifact: %w", err)
	}

	if err := os.MkdirAll(m.cfg.Dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("recording: create artifact dir: %w", err)
	}
	path := filepath.Join(m.cfg.Dir, filepath.Base(s.filename))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return Result{}, fmt.Errorf("recording: write artifact: %w", err)
	}

	res := Result{
		SessionID:   s.id,
		Filename:    s.filename,
		Path:        path,
		Duration:    endTime.Sub(s.startTime),
		TotalPaused: s.totalPaused,
		FileSize:    len(payload),
		Payload:     payload,
	}
	observe.Logger(ctx).Info("recording session stopped",
		"session_id", s.id, "path", path, "duration", res.Duration,
		"total_paused", res.TotalPaused, "file_size", res.FileSize)
	return res, nil
}

// Status is the live-table summary served for get_status queries.
type Status struct {
	Enabled        bool
	ActiveSessions int
	BufferedChunks int
	Sessions       []string
}

// GetStatus reports the active session count, the buffered chunk total across
// all sessions, and the active session IDs.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{}
	for id, s := range m.sessions {
		st.BufferedChunks += len(s.chunks)
		if s.active {
			st.Enabled = true
			st.ActiveSessions++
			st.Sessions = append(st.Sessions, id)
		}
	}
	return st
}

// RelativeTime computes the recording-relative position of a transcription
// event against the most recently started session: elapsed wall time minus
// accumulated pauses, floored at zero. While the session is paused, ok is
// false and the event carries no recording-time field: speech recognized
// during a pause has no position in the eventual recording.
func (m *Manager) RelativeTime(eventTime time.Time) (rel time.Duration, start time.Time, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *session
	for _, s := range m.sessions {
		if latest == nil || s.startTime.After(latest.startTime) {
			latest = s
		}
	}
	if latest == nil {
		return 0, time.Time{}, false
	}
	if !latest.pauseStart.IsZero() {
		return 0, time.Time{}, false
	}

	rel = eventTime.Sub(latest.startTime) - latest.totalPaused
	if rel < 0 {
		rel = 0
	}
	return rel, latest.startTime, true
}

// resolve looks up a session by ID, or, with an empty ID, picks the most
// recently started session, restricted to active ones when activeOnly is set.
// Callers hold m.mu.
func (m *Manager) resolve(sessionID string, activeOnly bool) *session {
	if sessionID != "" {
		return m.sessions[sessionID]
	}
	var latest *session
	for _, s := range m.sessions {
		if activeOnly && !s.active {
			continue
		}
		if latest == nil || s.startTime.After(latest.startTime) {
			latest = s
		}
	}
	return latest
}


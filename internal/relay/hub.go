// Package relay owns the live connection topology: one audio-producing
// uploader, any number of subtitle subscribers of which the most recent is
// "current", and the bidirectional command forwarding between them. It drives
// the segmentation/recognition/translation chain for uploaded audio and the
// recording session manager for the buffered copy of the same bytes.
package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/orangeburn/Realtime-Caption/internal/caption"
	"github.com/orangeburn/Realtime-Caption/internal/observe"
	"github.com/orangeburn/Realtime-Caption/internal/recording"
	"github.com/orangeburn/Realtime-Caption/internal/segment"
	"github.com/orangeburn/Realtime-Caption/pkg/provider/vad"
)

// writeTimeout bounds every outbound websocket write so one slow consumer
// cannot stall segmentation or command handling.
const writeTimeout = 5 * time.Second

// segmentQueueSize bounds the per-uploader backlog of segments awaiting
// recognition. When recognition falls behind, new segments are dropped rather
// than growing the queue without bound.
const segmentQueueSize = 16

// Config holds the relay parameters.
type Config struct {
	// SampleRate is the PCM sample rate of uploaded audio in Hz.
	SampleRate int

	// ChunkMs is the VAD analysis window duration in milliseconds.
	ChunkMs int

	// MaxEndSilenceMs is passed to the VAD stream.
	MaxEndSilenceMs int

	// DefaultTargetLang is the translation target assigned to a subscriber
	// at connect time.
	DefaultTargetLang string

	// DefaultASRLang is the recognition hint when the uploader does not
	// supply a lang query parameter.
	DefaultASRLang string

	// RecordingsDir is where finished artifacts live, served by the
	// download handler.
	RecordingsDir string
}

// Option configures a [Hub].
type Option func(*Hub)

// WithMetrics overrides the metrics instance. The default is
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(h *Hub) {
		if m != nil {
			h.metrics = m
		}
	}
}

// Hub is the process-wide connection coordinator. The mutex guards the
// topology maps only and is never held across a network write.
type Hub struct {
	cfg        Config
	vadEngine  vad.Engine
	pipeline   *caption.Pipeline
	translator *caption.Translator
	recorder   *recording.Manager
	metrics    *observe.Metrics

	mu          sync.Mutex
	uploader    *websocket.Conn
	subscribers map[*websocket.Conn]string // connection → target language
	current     *websocket.Conn
	deviceList  json.RawMessage

	// recordingStart is the Unix start time announced by an uploader-side
	// recorder via recording_started; zero when no such recording runs.
	recordingStart float64
}

// NewHub wires the relay over its collaborators.
func NewHub(cfg Config, vadEngine vad.Engine, pipeline *caption.Pipeline, translator *caption.Translator, recorder *recording.Manager, opts ...Option) *Hub {
	h := &Hub{
		cfg:         cfg,
		vadEngine:   vadEngine,
		pipeline:    pipeline,
		translator:  translator,
		recorder:    recorder,
		metrics:     observe.DefaultMetrics(),
		subscribers: make(map[*websocket.Conn]string),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds the websocket endpoints and the artifact download route to mux.
func (h *Hub) Register(mux *http.ServeMux) {
	mux.HandleFunc("/ws/upload", h.HandleUpload)
	mux.HandleFunc("/ws/subscribe", h.HandleSubscribe)
	mux.HandleFunc("/ws/recording", h.HandleRecording)
	mux.HandleFunc("GET /download/{filename}", h.HandleDownload)
}

// HandleDownload serves a persisted recording artifact. The filename is
// reduced to its base so the handler cannot be walked out of the artifact
// directory.
func (h *Hub) HandleDownload(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(r.PathValue("filename"))
	if name == "." || name == "/" {
		http.NotFound(w, r)
		return
	}
	path := filepath.Join(h.cfg.RecordingsDir, name)
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, path)
}

// --- shared topology accessors ---

// setUploader replaces the uploader reference. The previous connection is not
// closed here; its own handler cleans up when it stops sending.
func (h *Hub) setUploader(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.uploader = c
}

// clearUploader drops the reference only when it still points at c, so a
// replaced uploader's late disconnect does not evict its successor.
func (h *Hub) clearUploader(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.uploader == c {
		h.uploader = nil
	}
}

func (h *Hub) getUploader() (*websocket.Conn, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.uploader, h.uploader != nil
}

// addSubscriber registers c as the current subscriber with the given target
// language.
func (h *Hub) addSubscriber(c *websocket.Conn, lang string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[c] = lang
	h.current = c
}

// removeSubscriber drops c, clearing the current pointer when it was current.
func (h *Hub) removeSubscriber(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, c)
	if h.current == c {
		h.current = nil
	}
}

// currentSubscriber returns the current subscriber and its target language.
func (h *Hub) currentSubscriber() (*websocket.Conn, string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return nil, "", false
	}
	return h.current, h.subscribers[h.current], true
}

// setTargetLang updates the subscriber's target language, returning false for
// connections no longer registered.
func (h *Hub) setTargetLang(c *websocket.Conn, lang string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[c]; !ok {
		return false
	}
	h.subscribers[c] = lang
	return true
}

// snapshotSubscribers returns the registered connections for broadcasting.
func (h *Hub) snapshotSubscribers() []*websocket.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := make([]*websocket.Conn, 0, len(h.subscribers))
	for c := range h.subscribers {
		conns = append(conns, c)
	}
	return conns
}

func (h *Hub) setDeviceList(list json.RawMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deviceList = list
}

func (h *Hub) getDeviceList() json.RawMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.deviceList
}

func (h *Hub) setRecordingStart(t float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recordingStart = t
}

func (h *Hub) getRecordingStart() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.recordingStart
}

// writeJSON marshals v and writes it as one text frame within writeTimeout.
func writeJSON(ctx context.Context, c *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeRaw(ctx, c, data)
}

// writeRaw writes one text frame within writeTimeout.
func writeRaw(ctx context.Context, c *websocket.Conn, data []byte) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.Write(wctx, websocket.MessageText, data)
}

// pong is the heartbeat reply sent on every endpoint.
var pong = map[string]string{"type": "pong"}

// newExtractor builds a per-uploader segment extractor from the hub config.
func (h *Hub) newExtractor() (*segment.Extractor, error) {
	return segment.New(h.vadEngine, segment.Config{
		SampleRate:      h.cfg.SampleRate,
		ChunkMs:         h.cfg.ChunkMs,
		MaxEndSilenceMs: h.cfg.MaxEndSilenceMs,
	})
}

package relay

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/orangeburn/Realtime-Caption/internal/observe"
	"github.com/orangeburn/Realtime-Caption/internal/segment"
)

// Subtitle is the push payload delivered to the current subscriber for each
// recognized segment.
type Subtitle struct {
	Code       int    `json:"code"`
	Info       string `json:"info"`
	Data       string `json:"data"`
	Translated string `json:"translated"`

	// Timestamp and AudioSyncTime are the Unix time the segment closed.
	Timestamp     float64 `json:"timestamp"`
	AudioSyncTime float64 `json:"audio_sync_time"`

	// AudioChunkOffset is the segment's offset within the unconsumed audio,
	// in seconds.
	AudioChunkOffset float64 `json:"audio_chunk_offset"`

	// RecordingRelativeTime and RecordingStartTime are present only while a
	// recording runs and is not paused.
	RecordingRelativeTime *float64 `json:"recording_relative_time,omitempty"`
	RecordingStartTime    *float64 `json:"recording_start_time,omitempty"`
}

// pendingSegment is one extracted segment queued for recognition.
type pendingSegment struct {
	seg    segment.Segment
	closed time.Time
}

// HandleUpload serves the audio-producing endpoint. Binary frames are raw
// PCM; they feed the recording buffer (when enabled) and the segment
// extractor. Text frames carry uploader-side control messages. A new uploader
// connection replaces the previous reference without closing it.
//
// Recognition and translation run on a dedicated worker goroutine so the read
// loop keeps draining audio while a segment is in flight.
func (h *Hub) HandleUpload(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		observe.Logger(r.Context()).Warn("upload accept failed", "err", err)
		return
	}
	// Audio frames can be large; 1 MiB covers several seconds of PCM.
	conn.SetReadLimit(1 << 20)

	ctx := r.Context()
	log := observe.Logger(ctx)

	lang := strings.ToLower(r.URL.Query().Get("lang"))
	if lang == "" {
		lang = h.cfg.DefaultASRLang
	}

	ex, err := h.newExtractor()
	if err != nil {
		log.Error("upload: create extractor", "err", err)
		conn.Close(websocket.StatusInternalError, "vad unavailable")
		return
	}
	defer ex.Close()

	h.setUploader(conn)
	h.metrics.ActiveUploaders.Add(ctx, 1)
	log.Info("uploader connected", "lang", lang)

	queue := make(chan pendingSegment, segmentQueueSize)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		for p := range queue {
			h.processSegment(ctx, p, lang)
		}
	}()

	defer func() {
		close(queue)
		<-workerDone
		h.clearUploader(conn)
		h.metrics.ActiveUploaders.Add(ctx, -1)
		log.Info("uploader disconnected")
	}()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			log.Info("upload read ended", "err", err)
			return
		}

		switch typ {
		case websocket.MessageBinary:
			if h.recorder.Enabled() {
				h.recorder.Append(data)
			}
			for _, seg := range ex.Feed(ctx, data) {
				select {
				case queue <- pendingSegment{seg: seg, closed: time.Now()}:
				default:
					h.metrics.RecordDroppedFrame(ctx, "recognition_backlog")
					log.Warn("segment dropped, recognition backlog full")
				}
			}

		case websocket.MessageText:
			h.handleUploaderText(ctx, conn, data)
		}
	}
}

// handleUploaderText dispatches a control message from the uploader.
func (h *Hub) handleUploaderText(ctx context.Context, conn *websocket.Conn, data []byte) {
	log := observe.Logger(ctx)

	cmd, err := DecodeCommand(data)
	if err != nil {
		h.metrics.RecordMalformedCommand(ctx, "upload")
		log.Warn("upload: malformed text frame ignored", "err", err)
		return
	}

	switch cmd.Kind {
	case KindPing:
		if err := writeJSON(ctx, conn, pong); err != nil {
			log.Warn("upload: pong failed", "err", err)
		}

	case KindDeviceList:
		h.setDeviceList(cmd.DeviceList)
		log.Info("device list updated")
		h.broadcastDeviceList(ctx)

	case KindRecordingStarted:
		// Start time from the uploader-side recorder anchors
		// recording_relative_time for subsequent subtitles.
		h.setRecordingStart(cmd.StartTime)
		h.forwardToCurrent(ctx, cmd.Raw)

	case KindRecordingCompleted:
		h.setRecordingStart(0)
		h.forwardToCurrent(ctx, cmd.Raw)

	default:
		log.Debug("upload: ignoring command", "kind", cmd.Kind.String())
	}
}

// broadcastDeviceList pushes the cached device list to every subscriber,
// dropping connections whose write fails.
func (h *Hub) broadcastDeviceList(ctx context.Context) {
	list := h.getDeviceList()
	payload := map[string]any{"device_list": list}
	for _, c := range h.snapshotSubscribers() {
		if err := writeJSON(ctx, c, payload); err != nil {
			observe.Logger(ctx).Warn("device list push failed, removing subscriber", "err", err)
			h.removeSubscriber(c)
		}
	}
}

// forwardToCurrent relays a raw message to the current subscriber, if any.
func (h *Hub) forwardToCurrent(ctx context.Context, raw []byte) {
	c, _, ok := h.currentSubscriber()
	if !ok {
		observe.Logger(ctx).Warn("no subscriber online, message not forwarded")
		return
	}
	if err := writeRaw(ctx, c, raw); err != nil {
		observe.Logger(ctx).Warn("forward to subscriber failed", "err", err)
	}
}

// processSegment runs one extracted segment through recognition and
// translation and pushes the subtitle to the current subscriber. Collaborator
// failures are logged and swallowed; a bad segment never tears down the
// stream.
func (h *Hub) processSegment(ctx context.Context, p pendingSegment, lang string) {
	log := observe.Logger(ctx)

	res, err := h.pipeline.Recognize(ctx, p.seg.Samples, lang)
	if err != nil {
		log.Warn("recognition failed, segment skipped", "err", err)
		return
	}
	if res.Empty() {
		log.Debug("blank transcript, no subtitle pushed")
		return
	}

	h.translator.Remember(res.PlainText, res.InfoText, res.SourceLang)

	sub, tgtLang, ok := h.currentSubscriber()
	if !ok {
		log.Debug("no current subscriber, subtitle not pushed")
		return
	}

	translated := h.translator.Translate(ctx, res.PlainText, res.SourceLang, tgtLang)

	payload := Subtitle{
		Code:             0,
		Info:             res.PlainText,
		Data:             res.PlainText,
		Translated:       translated,
		Timestamp:        unixSeconds(p.closed),
		AudioSyncTime:    unixSeconds(p.closed),
		AudioChunkOffset: p.seg.Offset.Seconds(),
	}

	// The stamp anchors on the segment-close time, not the push time, so
	// recognition latency never drifts it. Pause suppression still reflects
	// the recorder state at push time.
	if rel, start, ok := h.recorder.RelativeTime(p.closed); ok {
		relSec := rel.Seconds()
		startSec := unixSeconds(start)
		payload.RecordingRelativeTime = &relSec
		payload.RecordingStartTime = &startSec
	} else if startSec := h.getRecordingStart(); startSec > 0 && !h.recorder.Enabled() {
		// Uploader-side recorder: no pause bookkeeping available here,
		// the announced start time is the best anchor we have.
		relSec := max(0, unixSeconds(p.closed)-startSec)
		payload.RecordingRelativeTime = &relSec
		payload.RecordingStartTime = &startSec
	}

	if err := writeJSON(ctx, sub, payload); err != nil {
		log.Warn("subtitle push failed", "err", err)
		return
	}
	h.metrics.RecordSubtitle(ctx, tgtLang)
	h.metrics.PipelineDuration.Record(ctx, time.Since(p.closed).Seconds())
	log.Debug("subtitle pushed", "text_len", len(res.PlainText), "tgt_lang", tgtLang)
}

// unixSeconds is t as fractional Unix seconds, the timestamp unit used on the
// wire.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

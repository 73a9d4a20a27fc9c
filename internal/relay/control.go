package relay

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/orangeburn/Realtime-Caption/internal/observe"
	"github.com/orangeburn/Realtime-Caption/internal/recording"
)

// HandleRecording serves the recording control endpoint. Each text frame is
// one command (start, pause, resume, stop, get_status, ping) answered with a
// JSON reply on the same connection. A successful stop sends two messages:
// the completion acknowledgement, then the artifact push.
func (h *Hub) HandleRecording(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		observe.Logger(r.Context()).Warn("recording accept failed", "err", err)
		return
	}
	// The artifact push carries the whole WAV hex-encoded; allow roomy
	// frames in both directions.
	conn.SetReadLimit(1 << 20)

	ctx := r.Context()
	log := observe.Logger(ctx)
	log.Info("recording controller connected")
	defer log.Info("recording controller disconnected")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			log.Info("recording read ended", "err", err)
			return
		}

		cmd, err := DecodeCommand(data)
		if err != nil {
			h.metrics.RecordMalformedCommand(ctx, "recording")
			log.Warn("recording: malformed text frame ignored", "err", err)
			continue
		}

		switch cmd.Kind {
		case KindPing:
			h.replyRecording(ctx, conn, pong)

		case KindStartRecording:
			h.handleRecordingStart(ctx, conn, cmd)

		case KindPauseRecording:
			h.handleRecordingPause(ctx, conn, cmd)

		case KindResumeRecording:
			h.handleRecordingResume(ctx, conn, cmd)

		case KindStopRecording:
			h.handleRecordingStop(ctx, conn, cmd)

		case KindGetStatus:
			st := h.recorder.GetStatus()
			h.replyRecording(ctx, conn, map[string]any{
				"success":           true,
				"recording_enabled": st.Enabled,
				"active_sessions":   st.ActiveSessions,
				"total_buffer_size": st.BufferedChunks,
				"sessions":          st.Sessions,
			})

		default:
			log.Debug("recording: ignoring command", "kind", cmd.Kind.String())
		}
	}
}

func (h *Hub) handleRecordingStart(ctx context.Context, conn *websocket.Conn, cmd Command) {
	info, err := h.recorder.Start(ctx, cmd.SessionID, cmd.Filename)
	if err != nil {
		h.replyRecording(ctx, conn, map[string]any{
			"success": false,
			"message": fmt.Sprintf("start recording failed: %v", err),
		})
		return
	}
	h.replyRecording(ctx, conn, map[string]any{
		"success":           true,
		"message":           "recording started",
		"session_id":        info.SessionID,
		"start_time":        unixSeconds(info.StartTime),
		"recording_started": true,
		"filename":          info.Filename,
	})
}

func (h *Hub) handleRecordingPause(ctx context.Context, conn *websocket.Conn, cmd Command) {
	id, err := h.recorder.Pause(ctx, cmd.SessionID)
	if err != nil {
		h.replyRecording(ctx, conn, map[string]any{
			"success": false,
			"message": fmt.Sprintf("pause recording failed: %v", err),
		})
		return
	}
	h.replyRecording(ctx, conn, map[string]any{
		"success":    true,
		"message":    "recording paused",
		"session_id": id,
		"pause_time": unixSeconds(time.Now()),
	})
}

func (h *Hub) handleRecordingResume(ctx context.Context, conn *websocket.Conn, cmd Command) {
	id, err := h.recorder.Resume(ctx, cmd.SessionID)
	if err != nil {
		h.replyRecording(ctx, conn, map[string]any{
			"success": false,
			"message": fmt.Sprintf("resume recording failed: %v", err),
		})
		return
	}
	h.replyRecording(ctx, conn, map[string]any{
		"success":     true,
		"message":     "recording resumed",
		"session_id":  id,
		"resume_time": unixSeconds(time.Now()),
	})
}

func (h *Hub) handleRecordingStop(ctx context.Context, conn *websocket.Conn, cmd Command) {
	log := observe.Logger(ctx)

	res, err := h.recorder.Stop(ctx, cmd.SessionID)
	switch {
	case errors.Is(err, recording.ErrNoAudio):
		h.replyRecording(ctx, conn, map[string]any{
			"recording_completed": true,
			"success":             false,
			"message":             "recording stopped, no audio captured",
		})
		return
	case err != nil:
		h.replyRecording(ctx, conn, map[string]any{
			"success": false,
			"message": fmt.Sprintf("stop recording failed: %v", err),
		})
		return
	}

	h.replyRecording(ctx, conn, map[string]any{
		"recording_completed": true,
		"success":             true,
		"message":             "recording completed",
		"session_id":          res.SessionID,
		"data": map[string]any{
			"filename":           res.Filename,
			"file_path":          res.Path,
			"duration":           res.Duration.Seconds(),
			"file_size":          res.FileSize,
			"preparing_download": true,
		},
	})

	// Like the commands, the artifact notifications are presence-keyed.
	push := map[string]any{
		"audio_download_ready": true,
		"success":              true,
		"message":              "audio ready for download",
		"session_id":           res.SessionID,
		"data": map[string]any{
			"filename":   res.Filename,
			"audio_data": hex.EncodeToString(res.Payload),
			"file_path":  res.Path,
			"duration":   res.Duration.Seconds(),
			"file_size":  res.FileSize,
		},
	}
	if err := writeJSON(ctx, conn, push); err != nil {
		log.Warn("artifact push failed", "session_id", res.SessionID, "err", err)
		h.replyRecording(ctx, conn, map[string]any{
			"audio_download_failed": true,
			"success":               false,
			"message":               "audio push failed, fetch the file over http",
			"session_id":            res.SessionID,
			"data": map[string]any{
				"filename":  res.Filename,
				"file_path": res.Path,
			},
		})
	}
}

// replyRecording writes one control reply, logging failures. The connection's
// read loop notices a dead peer on its next read.
func (h *Hub) replyRecording(ctx context.Context, conn *websocket.Conn, v any) {
	if err := writeJSON(ctx, conn, v); err != nil {
		observe.Logger(ctx).Warn("recording reply failed", "err", err)
	}
}

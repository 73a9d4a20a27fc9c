package relay

import (
	"context"
	"net/http"
	"strings"

	"github.com/coder/websocket"

	"github.com/orangeburn/Realtime-Caption/internal/observe"
)

// HandleSubscribe serves the subtitle-consuming endpoint. The most recently
// connected subscriber becomes the current subtitle target. Subscribers can
// also steer the uploader: device switching and recording commands are
// forwarded over the uploader connection.
func (h *Hub) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		observe.Logger(r.Context()).Warn("subscribe accept failed", "err", err)
		return
	}

	ctx := r.Context()
	log := observe.Logger(ctx)

	lang := strings.TrimSpace(r.URL.Query().Get("tgt_lang"))
	if lang == "" {
		lang = h.cfg.DefaultTargetLang
	}

	h.addSubscriber(conn, lang)
	h.metrics.ActiveSubscribers.Add(ctx, 1)
	log.Info("subscriber connected", "tgt_lang", lang)

	defer func() {
		h.removeSubscriber(conn)
		h.metrics.ActiveSubscribers.Add(ctx, -1)
		log.Info("subscriber disconnected")
	}()

	// A late joiner gets the cached device list right away instead of
	// waiting for the uploader's next announcement.
	if list := h.getDeviceList(); list != nil {
		if err := writeJSON(ctx, conn, map[string]any{"device_list": list}); err != nil {
			log.Warn("initial device list push failed", "err", err)
			return
		}
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			log.Info("subscribe read ended", "err", err)
			return
		}
		h.handleSubscriberText(ctx, conn, data)
	}
}

// handleSubscriberText dispatches one control message from a subscriber.
func (h *Hub) handleSubscriberText(ctx context.Context, conn *websocket.Conn, data []byte) {
	log := observe.Logger(ctx)

	cmd, err := DecodeCommand(data)
	if err != nil {
		h.metrics.RecordMalformedCommand(ctx, "subscribe")
		log.Warn("subscribe: malformed text frame ignored", "err", err)
		return
	}

	switch cmd.Kind {
	case KindPing:
		if err := writeJSON(ctx, conn, pong); err != nil {
			log.Warn("subscribe: pong failed", "err", err)
		}

	case KindSwitchDevice:
		h.forwardToUploader(ctx, conn, map[string]any{"switch_device": cmd.SwitchDevice})

	case KindStartRecording, KindPauseRecording, KindResumeRecording, KindStopRecording:
		c, ok := h.getUploader()
		if !ok {
			writeError(ctx, conn, "audio source offline")
			return
		}
		if err := writeRaw(ctx, c, cmd.Raw); err != nil {
			log.Warn("recording command forward failed", "err", err)
			writeError(ctx, conn, "audio source unreachable")
		}

	case KindGetDeviceList:
		list := h.getDeviceList()
		if err := writeJSON(ctx, conn, map[string]any{"device_list": list}); err != nil {
			log.Warn("device list reply failed", "err", err)
		}

	case KindSetTargetLang:
		h.setTargetLang(conn, cmd.TargetLang)
		log.Info("target language changed", "tgt_lang", cmd.TargetLang)
		h.retranslateLast(ctx, conn, cmd.TargetLang)

	default:
		log.Debug("subscribe: ignoring command", "kind", cmd.Kind.String())
	}
}

// retranslateLast re-delivers the most recent utterance in the newly selected
// language so the change takes effect without waiting for fresh speech. The
// re-push carries no timing fields.
func (h *Hub) retranslateLast(ctx context.Context, conn *websocket.Conn, tgtLang string) {
	plain, info, srcLang, ok := h.translator.LastUtterance()
	if !ok {
		return
	}
	translated := h.translator.Translate(ctx, plain, srcLang, tgtLang)
	payload := map[string]any{
		"code":       0,
		"info":       info,
		"data":       info,
		"translated": translated,
	}
	if err := writeJSON(ctx, conn, payload); err != nil {
		observe.Logger(ctx).Warn("retranslated subtitle push failed", "err", err)
	}
}

// forwardToUploader relays a command payload to the uploader, answering the
// subscriber with an error message when no uploader is connected.
func (h *Hub) forwardToUploader(ctx context.Context, from *websocket.Conn, payload any) {
	c, ok := h.getUploader()
	if !ok {
		writeError(ctx, from, "audio source offline")
		return
	}
	if err := writeJSON(ctx, c, payload); err != nil {
		observe.Logger(ctx).Warn("forward to uploader failed", "err", err)
		writeError(ctx, from, "audio source unreachable")
	}
}

func writeError(ctx context.Context, c *websocket.Conn, msg string) {
	_ = writeJSON(ctx, c, map[string]any{"error": msg})
}

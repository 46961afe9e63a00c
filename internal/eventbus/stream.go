package eventbus

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/haasonsaas/agentrt/pkg/models"
)

// Flusher is satisfied by http.ResponseWriter for chunked SSE delivery.
type Flusher interface {
	io.Writer
	Flush()
}

// StreamSSE drains events until ctx is done (the consumer disconnects),
// framing each as an SSE event and flushing after every write, with a
// keepalive comment emitted after ≈30s of silence (spec §4.8). A
// serialisation failure on one event is logged and skipped; the stream
// continues. Grounded on the teacher's ws_control_plane tick-loop shape
// (select on ctx.Done / timer.C), adapted from websocket frames to SSE.
func StreamSSE(ctx context.Context, w Flusher, events <-chan models.Event, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	timer := time.NewTimer(keepaliveInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			payload, err := EncodeEvent(evt)
			if err != nil {
				logger.Warn("eventbus: skipping event after serialisation failure", "error", err, "type", evt.Type)
				continue
			}
			if err := WriteSSE(w, string(evt.Type), payload); err != nil {
				return
			}
			w.Flush()
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(keepaliveInterval)
		case <-timer.C:
			if err := WriteKeepalive(w); err != nil {
				return
			}
			w.Flush()
			timer.Reset(keepaliveInterval)
		}
	}
}

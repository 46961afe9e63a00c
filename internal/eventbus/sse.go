package eventbus

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

const keepaliveInterval = 30 * time.Second

// WriteSSE frames evt as `event: <type>\ndata: <json>\n\n` per spec §4.8.
// A write failure is returned to the caller; StreamSSE ends the stream
// on it. Serialisation happens earlier, in EncodeEvent.
func WriteSSE(w io.Writer, eventType, payload string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
	return err
}

// WriteKeepalive writes the `: keepalive\n\n` comment line used to keep
// idle SSE connections alive through proxies.
func WriteKeepalive(w io.Writer) error {
	_, err := io.WriteString(w, ": keepalive\n\n")
	return err
}

// KeepaliveInterval is the idle duration after which a keepalive comment
// must be sent (spec §4.8: "every ≈ 30s of silence").
func KeepaliveInterval() time.Duration { return keepaliveInterval }

// EncodeEvent marshals evt's payload for SSE framing, matching the
// EventType string used as the SSE event name.
func EncodeEvent(evt any) (string, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

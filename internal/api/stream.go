package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 2 * time.Second

// StreamHandler pushes the pose to websocket clients at a fixed rate.
type StreamHandler struct {
	src      SnapshotSource
	rate     time.Duration
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewStreamHandler creates a StreamHandler sending one message per rate.
func NewStreamHandler(src SnapshotSource, rate time.Duration) *StreamHandler {
	if rate <= 0 {
		rate = time.Second / 30
	}
	return &StreamHandler{
		src:  src,
		rate: rate,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: slog.Default().With("component", "stream"),
	}
}

// HandleStream upgrades the connection and writes a PoseResponse whenever a new frame was
// published since the previous tick.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	h.log.Debug("Stream client connected", "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reads only detect the close; clients have nothing to say.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.rate)
	defer ticker.Stop()

	var last uint64
	first := true
	for {
		select {
		case <-ctx.Done():
			h.log.Debug("Stream client disconnected", "remote", r.RemoteAddr)
			return
		case <-ticker.C:
			snap := h.src.Snapshot()
			if !first && snap.Updates == last {
				continue
			}
			first = false
			last = snap.Updates

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(poseResponse(snap)); err != nil {
				return
			}
		}
	}
}

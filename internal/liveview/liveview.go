// Package liveview serves a WebSocket preview of the capture pipeline's
// most recent frame, broadcasting to every connected viewer the same
// way the teacher's HTTP/WebSocket server fans out transcript events.
package liveview

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/jpeg"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/rawimage"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/trace"
)

// FrameMessage is one broadcast preview frame.
type FrameMessage struct {
	Type       string `json:"type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	FrameIndex int    `json:"frame_index"`
	JPEGBase64 string `json:"jpeg_base64"`
}

// Broadcaster fans out the pipeline's current frame to every connected
// WebSocket viewer.
type Broadcaster struct {
	runID string

	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}
}

// New creates a Broadcaster tagged with a fresh run identifier.
func New() *Broadcaster {
	return &Broadcaster{
		runID: uuid.NewString(),
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// RunID returns the identifier stamped on this broadcaster's session.
func (b *Broadcaster) RunID() string { return b.runID }

// Handler returns the HTTP handler serving the /ws preview endpoint.
func (b *Broadcaster) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.handleWebSocket)
	return trace.Middleware(mux)
}

func (b *Broadcaster) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		slog.Error("liveview websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	b.mu.Lock()
	b.conns[conn] = struct{}{}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.conns, conn)
		b.mu.Unlock()
	}()

	log := trace.Logger(r.Context())
	log.Info("liveview client connected", "remote", r.RemoteAddr)

	// Block until the client disconnects; viewers are read-only.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

// Push encodes img as JPEG and broadcasts it to every connected viewer.
// Encoding failures and individual dead connections are logged and
// skipped; Push never blocks the orchestrator tick on a slow viewer
// beyond the per-write goroutine dispatch.
func (b *Broadcaster) Push(img rawimage.RawImage, frameIndex int) {
	b.mu.RLock()
	n := len(b.conns)
	b.mu.RUnlock()
	if n == 0 || !img.Ok() {
		return
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rawimage.ToImage(img), &jpeg.Options{Quality: 80}); err != nil {
		slog.Error("liveview jpeg encode failed", "error", err)
		return
	}
	msg := FrameMessage{
		Type:       "frame",
		Width:      img.Width,
		Height:     img.Height,
		FrameIndex: frameIndex,
		JPEGBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for conn := range b.conns {
		go func(c *websocket.Conn) {
			_ = wsjson.Write(context.Background(), c, msg)
		}(conn)
	}
}

// Serve runs the preview HTTP server until ctx is cancelled.
func (b *Broadcaster) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: b.Handler()}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		return err
	}
}

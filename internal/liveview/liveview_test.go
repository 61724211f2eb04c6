package liveview

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/rawimage"
)

func TestNewAssignsRunID(t *testing.T) {
	b := New()
	if b.RunID() == "" {
		t.Error("expected a non-empty run ID")
	}
}

func TestPushWithNoConnectionsIsNoop(t *testing.T) {
	b := New()
	img := rawimage.New(4, 4)
	b.Push(img, 0) // must not panic or block
}

func TestPushWithInvalidImageIsNoop(t *testing.T) {
	b := New()
	b.Push(rawimage.RawImage{}, 0) // must not panic
}

func TestHandlerServesWebSocketRoute(t *testing.T) {
	b := New()
	srv := httptest.NewServer(b.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/does-not-exist")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for an unmapped route", resp.StatusCode)
	}

	wsResp, err := http.Get(srv.URL + "/ws")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer wsResp.Body.Close()
	if wsResp.StatusCode == http.StatusNotFound {
		t.Errorf("status = %d for /ws, want the websocket route to be mapped", wsResp.StatusCode)
	}
}

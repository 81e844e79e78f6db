package channel

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/alerts"
}

func TestWSDialer_EndToEnd(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/alerts" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`garbage`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(frameOK))
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	sink := newRecordingSink()
	var frames bytes.Buffer
	m := New(wsURL(srv), sink,
		WithDialer(NewWSDialer(time.Second)),
		WithFrameLogger(NewFileFrameLogger(&frames)),
	)
	m.Connect()
	sink.wait(t)
	m.Close()

	st := m.Status()
	if st.DecodeErrors != 1 || st.Received != 2 {
		t.Errorf("status: %+v", st)
	}
	if st.State != Disconnected {
		t.Errorf("want disconnected after Close, got %s", st.State)
	}
	if !strings.Contains(frames.String(), `"type":"decode_error"`) {
		t.Errorf("debug log should record the bad frame:\n%s", frames.String())
	}
}

func TestWSDialer_HandshakeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	d := NewWSDialer(time.Second)
	_, err := d.DialContext(t.Context(), wsURL(srv))
	if err == nil {
		t.Fatal("expected handshake error")
	}
	if !strings.Contains(err.Error(), "HTTP 403") {
		t.Errorf("error should carry the HTTP status, got %v", err)
	}
}

func TestFileFrameLogger_Lines(t *testing.T) {
	var buf bytes.Buffer
	l := NewFileFrameLogger(&buf)
	l.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	l.LogFrame([]byte(`{"success":true}`))
	l.LogFrame([]byte(`not json`))
	l.LogState(Connecting, Connected, nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("want 3 lines, got %d: %s", len(lines), buf.String())
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 1 not JSON: %v", err)
	}
	if first["type"] != "frame" || first["ts"] != "2026-03-01T00:00:00Z" {
		t.Errorf("line 1: %v", first)
	}
	if frame, ok := first["frame"].(map[string]any); !ok || frame["success"] != true {
		t.Errorf("valid JSON frame should be embedded, got %v", first["frame"])
	}

	var second map[string]any
	_ = json.Unmarshal([]byte(lines[1]), &second)
	if second["raw"] != "not json" {
		t.Errorf("invalid frame should be quoted, got %v", second)
	}

	var third map[string]any
	_ = json.Unmarshal([]byte(lines[2]), &third)
	if third["type"] != "state" || third["from"] != "connecting" || third["to"] != "connected" {
		t.Errorf("state line: %v", third)
	}
}

package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/reptin/rcs/internal/engine"
	"github.com/reptin/rcs/internal/store"
)

const trustedOrigin = "https://rept.in"

func newBridgeServer(t *testing.T) (wsURL string, s *store.Store) {
	t.Helper()
	core, s, _ := newTestCore(t)
	relay := NewRelay(core, s, []string{trustedOrigin, "http://localhost:3000"})
	relay.Start()
	t.Cleanup(relay.Stop)

	mux := http.NewServeMux()
	mux.HandleFunc("/bridge", relay.HandleBridge)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/bridge", s
}

func dialBridge(t *testing.T, wsURL string, opts ...ClientOption) *Client {
	t.Helper()
	c, err := Dial(context.Background(), wsURL, trustedOrigin, opts...)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestHandshakeAck(t *testing.T) {
	wsURL, _ := newBridgeServer(t)
	c := dialBridge(t, wsURL)

	conn := c.Handshake()
	if !conn.OK {
		t.Fatal("handshake not acknowledged")
	}
	if conn.ExtVersion != "1.0.0" {
		t.Fatalf("unexpected extension version: %q", conn.ExtVersion)
	}
}

func TestDeniedOriginCannotConnect(t *testing.T) {
	wsURL, _ := newBridgeServer(t)

	_, err := Dial(context.Background(), wsURL, "https://evil.example")
	if err == nil {
		t.Fatal("connection from unlisted origin should be refused")
	}
}

func TestSubdomainOfTrustedOriginIsRefused(t *testing.T) {
	wsURL, _ := newBridgeServer(t)

	// Membership is exact; no subdomain matching.
	if _, err := Dial(context.Background(), wsURL, "https://sub.rept.in"); err == nil {
		t.Fatal("subdomain of a trusted origin should be refused")
	}
}

func TestGetEngines(t *testing.T) {
	wsURL, s := newBridgeServer(t)
	if err := s.Set(engine.DefaultEngines()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	c := dialBridge(t, wsURL)

	engines, err := c.GetEngines()
	if err != nil {
		t.Fatalf("GetEngines: %v", err)
	}
	if len(engines) != len(engine.DefaultEngines()) {
		t.Fatalf("expected %d engines, got %d", len(engine.DefaultEngines()), len(engines))
	}
}

func TestAddEnginesEndToEnd(t *testing.T) {
	wsURL, s := newBridgeServer(t)
	c := dialBridge(t, wsURL)

	updates := make(chan int, 4)
	c.OnEnginesUpdate(func(engines []engine.Engine) {
		updates <- len(engines)
	})

	res, err := c.AddEngines([]EngineInput{
		{Title: "Wiki", URL: "https://w/?q=%s", Contexts: []engine.Context{engine.ContextSelection}},
	})
	if err != nil {
		t.Fatalf("AddEngines: %v", err)
	}
	if !res.OK || res.Message != "1 platforms added" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got := s.Get(); len(got) != 1 || got[0].Title != "Wiki" {
		t.Fatalf("store not updated: %+v", got)
	}

	// The store change is pushed back as an unsolicited sync.
	select {
	case n := <-updates:
		if n != 1 {
			t.Fatalf("sync push carried %d engines, want 1", n)
		}
	case <-time.After(time.Second):
		t.Fatal("no engines update pushed after add")
	}
}

func TestRemoveEngineEndToEnd(t *testing.T) {
	wsURL, s := newBridgeServer(t)
	c := dialBridge(t, wsURL)

	if _, err := c.AddEngines([]EngineInput{
		{Title: "Doomed", URL: "https://d/?q=%s", Contexts: []engine.Context{engine.ContextSelection}},
	}); err != nil {
		t.Fatalf("AddEngines: %v", err)
	}

	res, err := c.RemoveEngine("https://d/?q=%s")
	if err != nil {
		t.Fatalf("RemoveEngine: %v", err)
	}
	if !res.OK {
		t.Fatalf("remove failed: %+v", res)
	}
	if len(s.Get()) != 0 {
		t.Fatalf("engine survived removal: %+v", s.Get())
	}
}

func TestUnrecognizedFrameIsDroppedSilently(t *testing.T) {
	wsURL, _ := newBridgeServer(t)

	header := http.Header{}
	header.Set("Origin", trustedOrigin)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	// Outside the vocabulary: must be dropped without a reply or a close.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"RCS_EVIL"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	// The connection stays usable for recognized traffic.
	if err := conn.WriteJSON(HandshakeMessage{Type: TypeHandshake, Origin: trustedOrigin, Version: ProtocolVersion}); err != nil {
		t.Fatalf("write handshake: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var ack AckMessage
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack.Type != TypeAck {
		t.Fatalf("expected ack, got %+v", ack)
	}
}

func TestRequestTimesOutWhenCoreNeverResponds(t *testing.T) {
	// A bridge endpoint that accepts the connection but never answers.
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, err := Dial(context.Background(), wsURL, trustedOrigin,
		WithTimeouts(50*time.Millisecond, 100*time.Millisecond))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	if conn := c.Handshake(); conn.OK {
		t.Fatal("handshake against a silent core should not connect")
	}

	start := time.Now()
	res, err := c.AddEngines([]EngineInput{
		{Title: "X", URL: "https://x/?q=%s", Contexts: []engine.Context{engine.ContextSelection}},
	})
	if err != nil {
		t.Fatalf("AddEngines: %v", err)
	}
	if res.OK || res.Message != "timeout" {
		t.Fatalf("expected timeout failure, got %+v", res)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("timeout took too long: %v", elapsed)
	}
	if c.pending.size() != 0 {
		t.Fatalf("dangling resolver after timeout: %d", c.pending.size())
	}
}

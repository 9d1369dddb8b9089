package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xelth-com/protocolos/internal/media"
)

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg map[string]interface{}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return msg
}

func TestSubscribeAndReceiveProgress(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil)
	go hub.Run(ctx)

	conn := dial(t, hub)
	room := ProtocolRoom("p1")
	if err := conn.WriteJSON(map[string]string{"type": "subscribe", "room": room}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if ack := readMessage(t, conn); ack["type"] != TypeAck || ack["room"] != room {
		t.Fatalf("unexpected ack %v", ack)
	}
	if n := hub.Subscribers(room); n != 1 {
		t.Fatalf("subscribers = %d, want 1", n)
	}

	hub.ProgressListener("p1").OnProgress(media.Event{Role: media.RoleDamage, Status: media.StatusRetrying, Attempt: 1})

	msg := readMessage(t, conn)
	if msg["type"] != TypeUploadProgress || msg["room"] != room {
		t.Fatalf("unexpected message %v", msg)
	}
	data, _ := msg["data"].(map[string]interface{})
	if data["role"] != "avaria" || data["status"] != "retrying" {
		t.Errorf("unexpected event payload %v", data)
	}

	if n := hub.Publish(ProtocolRoom("other"), Message{Type: TypeProtocolUpdate}); n != 0 {
		t.Errorf("publish to empty room reached %d clients", n)
	}
}

func TestUnknownControlMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil)
	go hub.Run(ctx)

	conn := dial(t, hub)
	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"shout","room":"x"}`))
	if msg := readMessage(t, conn); msg["type"] != TypeError {
		t.Errorf("expected error message, got %v", msg)
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	go hub.Run(ctx)

	conn := dial(t, hub)
	conn.WriteJSON(map[string]string{"type": "subscribe", "room": UnitRoom("U01")})
	readMessage(t, conn)

	cancel()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the connection to close on shutdown")
	}
	if n := hub.Subscribers(UnitRoom("U01")); n != 0 {
		t.Errorf("rooms not cleared: %d", n)
	}
}

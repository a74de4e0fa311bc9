package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"storefront/models"
)

func TestHubRegisterBroadcastUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := &Client{Send: make(chan []byte, 10)}
	if !hub.Register(client) {
		t.Fatal("register failed on a running hub")
	}

	hub.Emit(context.Background(), models.OrderEvent{Type: "order.created", OrderID: "o1"})

	select {
	case got := <-client.Send:
		var ev models.OrderEvent
		if err := json.Unmarshal(got, &ev); err != nil || ev.OrderID != "o1" {
			t.Fatalf("unexpected frame %s (%v)", got, err)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}

	hub.Unregister(client)
	select {
	case _, ok := <-client.Send:
		if ok {
			t.Fatal("expected closed channel after unregister")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}

func TestHubStopRejectsClients(t *testing.T) {
	hub := NewHub()
	hub.Stop()
	hub.Stop()

	if hub.Register(&Client{Send: make(chan []byte, 1)}) {
		t.Fatal("register should fail after stop")
	}
	hub.Broadcast([]byte("dropped"))
}

func TestOrderFeedDeliversEvents(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	h := NewHandler(hub, []string{"*"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.OrderFeed(w, r, httprouter.Params{})
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Registration happens inside the handler; retry until the client is attached.
	deadline := time.Now().Add(2 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	got := make(chan []byte, 1)
	go func() {
		_, msg, err := conn.ReadMessage()
		if err == nil {
			got <- msg
		}
	}()
	for time.Now().Before(deadline) {
		hub.Broadcast([]byte(`{"type":"order.paid"}`))
		select {
		case msg := <-got:
			if !strings.Contains(string(msg), "order.paid") {
				t.Fatalf("unexpected frame %s", msg)
			}
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
	t.Fatal("no event received")
}

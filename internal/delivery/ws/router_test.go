package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mmuslimabdulj/persona-chat/internal/domain"
	"github.com/mmuslimabdulj/persona-chat/internal/logging"
)

// newMockClient creates a client without a websocket connection
func newMockClient(r *Router, id string, buffer int) *Client {
	return &Client{
		ID:     id,
		router: r,
		send:   make(chan []byte, buffer),
	}
}

func startRouter(t *testing.T) *Router {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRouter(logging.Discard())
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatalf("send channel of %s closed", c.ID)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for a message to %s", c.ID)
	}
	return nil
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	// deliveries are processed in order, so a flush through another client settles the loop
	time.Sleep(20 * time.Millisecond)
	select {
	case msg, ok := <-c.send:
		if ok {
			t.Errorf("Expected no message for %s, got %s", c.ID, msg)
		}
	default:
	}
}

func TestRouter_ConnectAndCount(t *testing.T) {
	r := startRouter(t)

	r.Connect(newMockClient(r, "human_a", 8))
	r.Connect(newMockClient(r, "human_b", 8))

	if r.ClientCount() != 2 {
		t.Errorf("Expected 2 clients, got %d", r.ClientCount())
	}
	if !r.Connected("human_a") {
		t.Error("Expected human_a to be connected")
	}
}

func TestRouter_SendTo(t *testing.T) {
	r := startRouter(t)
	a := newMockClient(r, "human_a", 8)
	b := newMockClient(r, "human_b", 8)
	r.Connect(a)
	r.Connect(b)

	r.SendTo("human_a", []byte("hello"))
	r.SendTo("human_unknown", []byte("lost"))

	if got := string(receive(t, a)); got != "hello" {
		t.Errorf("Expected 'hello', got %q", got)
	}
	expectNothing(t, b)
}

func TestRouter_BroadcastToSet(t *testing.T) {
	r := startRouter(t)
	a := newMockClient(r, "human_a", 8)
	b := newMockClient(r, "human_b", 8)
	c := newMockClient(r, "human_c", 8)
	r.Connect(a)
	r.Connect(b)
	r.Connect(c)

	r.BroadcastToSet([]byte("room"), []string{"human_a", "human_c", "ai_1"})

	receive(t, a)
	receive(t, c)
	expectNothing(t, b)
}

func TestRouter_BroadcastExcept(t *testing.T) {
	r := startRouter(t)
	a := newMockClient(r, "human_a", 8)
	b := newMockClient(r, "human_b", 8)
	r.Connect(a)
	r.Connect(b)

	r.BroadcastExcept([]byte("all"), "human_a")

	receive(t, b)
	expectNothing(t, a)
}

func TestRouter_OrderingPerRecipient(t *testing.T) {
	r := startRouter(t)
	a := newMockClient(r, "human_a", 64)
	r.Connect(a)

	for i := range 20 {
		r.SendTo("human_a", []byte{byte('a' + i)})
	}
	for i := range 20 {
		if got := receive(t, a); got[0] != byte('a'+i) {
			t.Fatalf("Expected message %d in order, got %q", i, got)
		}
	}
}

func TestRouter_DisconnectAnnounces(t *testing.T) {
	r := startRouter(t)
	a := newMockClient(r, "human_a", 8)
	b := newMockClient(r, "human_b", 8)
	r.Connect(a)
	r.Connect(b)

	r.Disconnect(a)

	var env domain.Envelope
	if err := json.Unmarshal(receive(t, b), &env); err != nil {
		t.Fatalf("Invalid envelope: %v", err)
	}
	if env.Type != domain.EventPlayerDisconnected {
		t.Errorf("Expected player_disconnected, got %s", env.Type)
	}
	var payload domain.DisconnectedPayload
	json.Unmarshal(env.Data, &payload)
	if payload.ClientID != "human_a" {
		t.Errorf("Expected human_a to be announced, got %s", payload.ClientID)
	}

	if _, ok := <-a.send; ok {
		t.Error("Expected the departed client's channel to be closed")
	}
	if r.ClientCount() != 1 {
		t.Errorf("Expected 1 client, got %d", r.ClientCount())
	}

	// double disconnect is a no-op
	r.Disconnect(a)
	expectNothing(t, b)
}

func TestRouter_ReconnectReplacesStaleClient(t *testing.T) {
	r := startRouter(t)
	old := newMockClient(r, "human_a", 8)
	observer := newMockClient(r, "human_b", 8)
	r.Connect(old)
	r.Connect(observer)

	fresh := newMockClient(r, "human_a", 8)
	r.Connect(fresh)

	if _, ok := <-old.send; ok {
		t.Error("Expected the stale client's channel to be closed")
	}

	// the stale read pump exiting must not remove the new connection
	r.Disconnect(old)
	r.SendTo("human_a", []byte("still here"))
	if got := string(receive(t, fresh)); got != "still here" {
		t.Errorf("Expected message on the fresh connection, got %q", got)
	}
	expectNothing(t, observer)
	if r.ClientCount() != 2 {
		t.Errorf("Expected 2 clients, got %d", r.ClientCount())
	}
}

func TestRouter_DropsSlowClient(t *testing.T) {
	r := startRouter(t)
	slow := newMockClient(r, "human_slow", 1)
	other := newMockClient(r, "human_other", 8)
	r.Connect(slow)
	r.Connect(other)

	r.SendTo("human_slow", []byte("1"))
	r.SendTo("human_slow", []byte("2"))
	r.SendTo("human_other", []byte("sync"))
	receive(t, other)

	if r.Connected("human_slow") {
		t.Fatal("Expected the slow client to be dropped")
	}

	// its read pump exits afterwards and the departure is announced
	r.Disconnect(slow)
	var env domain.Envelope
	if err := json.Unmarshal(receive(t, other), &env); err != nil {
		t.Fatalf("Invalid envelope: %v", err)
	}
	if env.Type != domain.EventPlayerDisconnected {
		t.Errorf("Expected player_disconnected, got %s", env.Type)
	}
}

func TestRouter_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRouter(logging.Discard())
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx)
		close(done)
	}()

	a := newMockClient(r, "human_a", 8)
	r.Connect(a)
	cancel()
	<-done

	if _, ok := <-a.send; ok {
		t.Error("Expected client channels to be closed on shutdown")
	}
	// calls after shutdown must not block
	r.SendTo("human_a", []byte("late"))
	r.Connect(newMockClient(r, "human_b", 1))
	r.Disconnect(a)
}

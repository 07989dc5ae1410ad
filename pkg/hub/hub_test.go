package hub

import (
	"context"
	"testing"
	"time"
)

func newTestClient(h *Hub, buffer int) *Client {
	c := &Client{hub: h, send: make(chan []byte, buffer)}
	h.register <- c
	return c
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func receive(t *testing.T, c *Client) ([]byte, bool) {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		return msg, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil, false
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test")
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	waitFor(t, "hub start", h.IsRunning)
	return h, cancel
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	h, cancel := startHub(t)
	defer cancel()

	a := newTestClient(h, 4)
	b := newTestClient(h, 4)
	waitFor(t, "two clients", func() bool { return h.ClientCount() == 2 })

	if err := h.BroadcastJSON(map[string]any{"found": true}); err != nil {
		t.Fatalf("BroadcastJSON() error = %v", err)
	}

	for _, c := range []*Client{a, b} {
		msg, ok := receive(t, c)
		if !ok || string(msg) != `{"found":true}` {
			t.Errorf("received %q, %v", msg, ok)
		}
	}

	waitFor(t, "broadcast count", func() bool { return h.Stats().Broadcast == 1 })
}

func TestHub_DropsSlowClient(t *testing.T) {
	h, cancel := startHub(t)
	defer cancel()

	slow := newTestClient(h, 1)
	waitFor(t, "client", func() bool { return h.ClientCount() == 1 })

	h.Broadcast([]byte("first"))
	h.Broadcast([]byte("second"))
	waitFor(t, "slow client removal", func() bool { return h.ClientCount() == 0 })

	msg, ok := receive(t, slow)
	if !ok || string(msg) != "first" {
		t.Errorf("first message = %q, %v", msg, ok)
	}
	if _, ok := receive(t, slow); ok {
		t.Error("send channel should be closed after the client was dropped")
	}
}

func TestHub_Unregister(t *testing.T) {
	h, cancel := startHub(t)
	defer cancel()

	c := newTestClient(h, 1)
	waitFor(t, "client", func() bool { return h.ClientCount() == 1 })

	h.leave(c)
	waitFor(t, "unregister", func() bool { return h.ClientCount() == 0 })
	if _, ok := receive(t, c); ok {
		t.Error("send channel should be closed on unregister")
	}
}

func TestHub_StopClosesClients(t *testing.T) {
	h, cancel := startHub(t)

	c := newTestClient(h, 1)
	waitFor(t, "client", func() bool { return h.ClientCount() == 1 })

	cancel()
	waitFor(t, "hub stop", func() bool { return !h.IsRunning() })

	if _, ok := receive(t, c); ok {
		t.Error("send channel should be closed when the hub stops")
	}

	done := make(chan struct{})
	go func() {
		h.leave(c)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("leave blocked after the hub stopped")
	}
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	h := New("idle")

	for i := 0; i < cap(h.broadcast)+3; i++ {
		h.Broadcast([]byte("x"))
	}

	if got := h.Stats().Dropped; got != 3 {
		t.Errorf("Dropped = %d, want 3", got)
	}
}

func TestHub_BroadcastJSONError(t *testing.T) {
	h := New("idle")
	if err := h.BroadcastJSON(make(chan int)); err == nil {
		t.Error("expected an encoding error")
	}
}

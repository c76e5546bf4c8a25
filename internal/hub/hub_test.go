package hub

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeConn struct {
	mu        sync.Mutex
	written   [][]byte
	failWrite bool

	inbound chan []byte
	done    chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 10), done: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-f.inbound:
		return 1, msg, nil
	case <-f.done:
		return 0, nil, errors.New("closed")
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite {
		return errors.New("write failed")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.written = append(f.written, cp)
	return nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.done) })
	return nil
}

func (f *fakeConn) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.written))
	for i, w := range f.written {
		out[i] = string(w)
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

func hasMessage(c *fakeConn, substr string) bool {
	for _, m := range c.messages() {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func TestAttach_SendsWelcome(t *testing.T) {
	h := New()
	conn := newFakeConn()
	h.Attach(conn)
	waitFor(t, func() bool { return hasMessage(conn, `"status":"connected"`) })
}

func TestBroadcast_Isolation(t *testing.T) {
	h := New()
	good1 := newFakeConn()
	good2 := newFakeConn()
	bad := newFakeConn()
	bad.failWrite = true
	h.Attach(good1)
	h.Attach(good2)
	h.Attach(bad)
	waitFor(t, func() bool { return h.ClientCount() <= 3 })

	h.Broadcast(NewTranscript("hello", true, 0.9))

	waitFor(t, func() bool { return hasMessage(good1, "hello") && hasMessage(good2, "hello") })
	// failing observer is removed, others stay
	waitFor(t, func() bool { return h.ClientCount() == 2 })
}

func TestBroadcast_PerConnectionOrder(t *testing.T) {
	h := New()
	conn := newFakeConn()
	h.Attach(conn)
	waitFor(t, func() bool { return hasMessage(conn, `"status":"connected"`) })

	for i := 0; i < 5; i++ {
		h.Broadcast(NewStatus("step", map[string]any{"n": i}))
	}
	waitFor(t, func() bool { return len(conn.messages()) >= 6 })

	msgs := conn.messages()[1:] // skip welcome
	for i, raw := range msgs {
		var env struct {
			Data map[string]any `json:"data"`
		}
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			t.Fatalf("bad envelope %d: %v", i, err)
		}
		if int(env.Data["n"].(float64)) != i {
			t.Fatalf("out of order delivery: position %d got %v", i, env.Data["n"])
		}
	}
}

func TestPing_Pong(t *testing.T) {
	h := New()
	conn := newFakeConn()
	h.Attach(conn)
	conn.inbound <- []byte(`{"type":"ping"}`)
	waitFor(t, func() bool { return hasMessage(conn, `"pong"`) })
}

func TestClearContext_BroadcastsToAllIncludingSender(t *testing.T) {
	h := New()
	var cleared bool
	var mu sync.Mutex
	h.OnClearContext(func() {
		mu.Lock()
		cleared = true
		mu.Unlock()
	})
	sender := newFakeConn()
	other := newFakeConn()
	h.Attach(sender)
	h.Attach(other)

	sender.inbound <- []byte(`{"type":"clear_context"}`)
	waitFor(t, func() bool {
		return hasMessage(sender, "context_cleared") && hasMessage(other, "context_cleared")
	})
	mu.Lock()
	defer mu.Unlock()
	if !cleared {
		t.Fatalf("expected clear callback invoked")
	}
}

func TestUnknownInbound_IgnoredConnectionStaysOpen(t *testing.T) {
	h := New()
	conn := newFakeConn()
	h.Attach(conn)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	conn.inbound <- []byte(`{"type":"mystery"}`)
	conn.inbound <- []byte(`not json at all`)
	time.Sleep(30 * time.Millisecond)
	if h.ClientCount() != 1 {
		t.Fatalf("expected connection to stay registered, got %d", h.ClientCount())
	}
	if hasMessage(conn, "mystery") {
		t.Fatalf("no response should be sent for unknown types")
	}
}

func TestUnregister_Idempotent(t *testing.T) {
	h := New()
	conn := newFakeConn()
	c := h.Attach(conn)
	h.Unregister(c)
	h.Unregister(c)
	if h.ClientCount() != 0 {
		t.Fatalf("expected empty registry, got %d", h.ClientCount())
	}
}

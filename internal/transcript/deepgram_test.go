package transcript

import (
	"testing"
)

func TestProcessMessage_FinalResult(t *testing.T) {
	s := NewDeepgramService("test", Options{})
	raw := `{"type":"Results","is_final":true,"start":1.5,"channel":{"alternatives":[{"transcript":"hello world","confidence":0.97}]}}`
	s.processMessage([]byte(raw))
	select {
	case ev := <-s.Events():
		if !ev.IsFinal {
			t.Fatalf("expected final event")
		}
		if ev.Text != "hello world" {
			t.Fatalf("unexpected text %q", ev.Text)
		}
		if ev.Confidence != 0.97 {
			t.Fatalf("unexpected confidence %v", ev.Confidence)
		}
		if ev.Timestamp != 1.5 {
			t.Fatalf("unexpected timestamp %v", ev.Timestamp)
		}
	default:
		t.Fatalf("expected an event to be emitted")
	}
}

func TestProcessMessage_InterimResult(t *testing.T) {
	s := NewDeepgramService("test", Options{})
	raw := `{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"hel","confidence":0.5}]}}`
	s.processMessage([]byte(raw))
	select {
	case ev := <-s.Events():
		if ev.IsFinal {
			t.Fatalf("expected interim event")
		}
	default:
		t.Fatalf("expected an event to be emitted")
	}
}

func TestProcessMessage_EmptyTranscriptSkipped(t *testing.T) {
	s := NewDeepgramService("test", Options{})
	raw := `{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"","confidence":0.0}]}}`
	s.processMessage([]byte(raw))
	select {
	case <-s.Events():
		t.Fatalf("expected no event for empty transcript")
	default:
	}
}

func TestProcessMessage_MalformedIgnored(t *testing.T) {
	s := NewDeepgramService("test", Options{})
	s.processMessage([]byte("not-json"))
	s.processMessage([]byte(`{"type":"Unknown"}`))
	select {
	case <-s.Events():
		t.Fatalf("expected no event for malformed input")
	default:
	}
}

func TestSendPCM_NotConnected(t *testing.T) {
	s := NewDeepgramService("test", Options{})
	if err := s.SendPCM16KLE([]byte{0, 0}); err == nil {
		t.Fatalf("expected error when not connected")
	}
}

func TestConnect_EmptyKey(t *testing.T) {
	s := NewDeepgramService("", Options{})
	if err := s.Connect(); err == nil {
		t.Fatalf("expected error with empty api key")
	}
}

func TestClose_Idempotent(t *testing.T) {
	s := NewDeepgramService("test", Options{})
	if err := s.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	// events channel must be closed exactly once
	if _, ok := <-s.Events(); ok {
		t.Fatalf("expected closed events channel")
	}
}

func TestProcessMessage_AfterClose(t *testing.T) {
	s := NewDeepgramService("test", Options{})
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// A frame already in flight when the stream shuts down must be
	// dropped, never sent on the closed channel.
	interim := `{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"hel","confidence":0.5}]}}`
	final := `{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello","confidence":0.9}]}}`
	s.processMessage([]byte(interim))
	s.processMessage([]byte(final))
}

func TestAbortConnection_ClosesEventStream(t *testing.T) {
	s := NewDeepgramService("test", Options{})
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()

	s.abortConnection()

	if _, ok := <-s.Events(); ok {
		t.Fatalf("expected events channel closed after connection loss")
	}
	if err := s.SendPCM16KLE([]byte{0, 0}); err == nil {
		t.Fatalf("expected send to fail after connection loss")
	}
	// Frames still being parsed by the reader must be dropped quietly.
	raw := `{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"late","confidence":0.9}]}}`
	s.processMessage([]byte(raw))
	// A later Close must stay idempotent with the abort.
	if err := s.Close(); err != nil {
		t.Fatalf("close after abort: %v", err)
	}
}

func TestAbortConnection_Idempotent(t *testing.T) {
	s := NewDeepgramService("test", Options{})
	s.abortConnection()
	s.abortConnection()
	if _, ok := <-s.Events(); ok {
		t.Fatalf("expected closed events channel")
	}
}

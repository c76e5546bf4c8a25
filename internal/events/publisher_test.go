package events

import (
	"context"
	"testing"
)

func TestPublish_LogOnlyModeIsNoop(t *testing.T) {
	p := New(nil)
	err := p.Publish(context.Background(), TranscriptEvent{Text: "hello", IsFinal: true})
	if err != nil {
		t.Fatalf("log-only publish should not fail: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNew_EmptyBrokersDisabled(t *testing.T) {
	p := New(&Config{TopicPartial: "p", TopicFinal: "f"})
	if p.enabled {
		t.Fatalf("expected disabled publisher without brokers")
	}
}

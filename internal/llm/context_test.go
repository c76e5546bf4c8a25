package llm

import (
	"fmt"
	"testing"
)

func TestContextWindow_BoundHolds(t *testing.T) {
	w := NewContextWindow(5)
	for i := 0; i < 20; i++ {
		w.Append(RoleUser, fmt.Sprintf("turn %d", i))
		if w.Len() > 5 {
			t.Fatalf("window exceeded bound after %d appends: %d", i+1, w.Len())
		}
	}
	turns := w.Snapshot()
	if len(turns) != 5 {
		t.Fatalf("expected 5 retained turns, got %d", len(turns))
	}
	// retained turns are exactly the most recent five in call order
	for i, turn := range turns {
		want := fmt.Sprintf("turn %d", 15+i)
		if turn.Content != want {
			t.Fatalf("turn %d: got %q want %q", i, turn.Content, want)
		}
	}
}

func TestContextWindow_ClearIdempotent(t *testing.T) {
	w := NewContextWindow(5)
	w.Append(RoleUser, "hello")
	w.Clear()
	if w.Len() != 0 {
		t.Fatalf("expected empty window after clear, got %d", w.Len())
	}
	w.Clear()
	if w.Len() != 0 {
		t.Fatalf("expected empty window after second clear, got %d", w.Len())
	}
}

func TestContextWindow_SnapshotIsolation(t *testing.T) {
	w := NewContextWindow(5)
	w.Append(RoleUser, "a")
	snap := w.Snapshot()
	w.Append(RoleAssistant, "b")
	if len(snap) != 1 {
		t.Fatalf("snapshot mutated by later append: %d", len(snap))
	}
	snap[0].Content = "changed"
	if w.Snapshot()[0].Content != "a" {
		t.Fatalf("mutating snapshot leaked into the window")
	}
}

func TestContextWindow_ZeroMaxUsesDefault(t *testing.T) {
	w := NewContextWindow(0)
	for i := 0; i < 10; i++ {
		w.Append(RoleUser, "x")
	}
	if w.Len() != DefaultContextWindowSize {
		t.Fatalf("expected default bound %d, got %d", DefaultContextWindowSize, w.Len())
	}
}

package llm

import "sync"

// ContextWindow is the rolling conversation history used to build prompts.
// It never grows beyond its maximum length; insertion evicts the oldest
// turns first.
type ContextWindow struct {
	mu    sync.Mutex
	turns []Message
	max   int
}

// DefaultContextWindowSize matches the observed production default.
const DefaultContextWindowSize = 5

// NewContextWindow creates a window holding at most max turns.
func NewContextWindow(max int) *ContextWindow {
	if max <= 0 {
		max = DefaultContextWindowSize
	}
	return &ContextWindow{max: max}
}

// Append adds a turn, evicting the oldest turns if the window would
// exceed its maximum length. It always succeeds.
func (w *ContextWindow) Append(role, content string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.turns = append(w.turns, Message{Role: role, Content: content})
	if len(w.turns) > w.max {
		w.turns = w.turns[len(w.turns)-w.max:]
	}
}

// Clear empties the window. Idempotent.
func (w *ContextWindow) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.turns = nil
}

// Snapshot returns a copy of the current turns in insertion order. The
// copy is isolated from concurrent appends.
func (w *ContextWindow) Snapshot() []Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Message, len(w.turns))
	copy(out, w.turns)
	return out
}

// Len reports the current number of turns.
func (w *ContextWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.turns)
}

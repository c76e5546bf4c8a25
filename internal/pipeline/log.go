package pipeline

import (
	"strings"
	"sync"
)

// transcriptLog is the bounded rolling buffer of final transcripts used
// to build generation prompts. It is independent of the conversation
// context window, which holds curated question/answer turns.
type transcriptLog struct {
	mu      sync.Mutex
	entries []string
	max     int
}

func newTranscriptLog(max int) *transcriptLog {
	if max <= 0 {
		max = 10
	}
	return &transcriptLog{max: max}
}

// Append adds a final transcript, evicting the oldest entries first.
func (l *transcriptLog) Append(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, text)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

// Tail joins the most recent n entries in order.
func (l *transcriptLog) Tail(n int) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n > len(l.entries) {
		n = len(l.entries)
	}
	return strings.Join(l.entries[len(l.entries)-n:], " ")
}

func (l *transcriptLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

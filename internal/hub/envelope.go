package hub

import "time"

// Envelope event types delivered over the observer boundary.
const (
	TypeTranscript = "transcript"
	TypeResponse   = "response"
	TypeHint       = "hint"
	TypeStatus     = "status"
	TypePong       = "pong"
)

// Envelope wraps every outbound event.
type Envelope struct {
	Type      string  `json:"type"`
	Timestamp float64 `json:"timestamp,omitempty"`
	Data      any     `json:"data,omitempty"`
}

// TranscriptData is the payload of a transcript envelope.
type TranscriptData struct {
	Text       string  `json:"text"`
	IsFinal    bool    `json:"is_final"`
	Confidence float64 `json:"confidence"`
}

// ResponseData is the payload of a response or hint envelope.
type ResponseData struct {
	Text      string `json:"text"`
	Context   string `json:"context"`
	LatencyMS int    `json:"latency_ms"`
}

func now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// NewTranscript builds a transcript envelope stamped with the current time.
func NewTranscript(text string, isFinal bool, confidence float64) Envelope {
	return Envelope{
		Type:      TypeTranscript,
		Timestamp: now(),
		Data:      TranscriptData{Text: text, IsFinal: isFinal, Confidence: confidence},
	}
}

// NewResponse builds a response envelope.
func NewResponse(text, context string, latencyMS int) Envelope {
	return Envelope{
		Type:      TypeResponse,
		Timestamp: now(),
		Data:      ResponseData{Text: text, Context: context, LatencyMS: latencyMS},
	}
}

// NewStatus builds a status envelope; extra fields are merged next to
// the status key.
func NewStatus(status string, extra map[string]any) Envelope {
	data := map[string]any{"status": status}
	for k, v := range extra {
		data[k] = v
	}
	return Envelope{Type: TypeStatus, Timestamp: now(), Data: data}
}

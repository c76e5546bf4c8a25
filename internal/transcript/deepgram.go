// Package transcript provides the Deepgram live-streaming STT client.
package transcript

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/logging"
)

// keepAliveInterval is how often a KeepAlive frame is sent so Deepgram
// does not drop the socket during audio silence.
const keepAliveInterval = 5 * time.Second

// Event is a single transcription result.
type Event struct {
	Text       string
	IsFinal    bool
	Confidence float64
	Timestamp  float64
}

// Options configures the Deepgram connection.
type Options struct {
	Model      string
	Language   string
	SampleRate int
}

// DeepgramService streams PCM audio to Deepgram over a WebSocket and
// emits transcript events on a channel.
type DeepgramService struct {
	apiKey string
	opts   Options
	log    zerolog.Logger

	events    chan Event
	audioData chan []byte
	stopCh    chan struct{}

	mu           sync.RWMutex
	conn         *websocket.Conn
	connected    bool
	eventsClosed bool
	closeOnce    sync.Once
}

// Incoming Deepgram message shapes. Only the fields we read.
type resultsMessage struct {
	Type    string  `json:"type"`
	IsFinal bool    `json:"is_final"`
	Start   float64 `json:"start"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

type metadataMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
}

// NewDeepgramService creates a new streaming transcription service.
func NewDeepgramService(apiKey string, opts Options) *DeepgramService {
	if opts.Model == "" {
		opts.Model = "nova-2"
	}
	if opts.Language == "" {
		opts.Language = "en-US"
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	return &DeepgramService{
		apiKey:    apiKey,
		opts:      opts,
		log:       logging.WithComponent("deepgram"),
		events:    make(chan Event, 100),
		audioData: make(chan []byte, 1000),
		stopCh:    make(chan struct{}),
	}
}

// Events returns the channel of transcript events. It is closed when the
// service shuts down or the connection is lost.
func (s *DeepgramService) Events() <-chan Event { return s.events }

// Connect establishes the WebSocket connection to Deepgram and starts
// the reader and writer goroutines.
func (s *DeepgramService) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}
	if s.apiKey == "" {
		return fmt.Errorf("deepgram api key is empty")
	}

	params := url.Values{}
	params.Set("model", s.opts.Model)
	params.Set("language", s.opts.Language)
	params.Set("encoding", "linear16")
	params.Set("sample_rate", strconv.Itoa(s.opts.SampleRate))
	params.Set("channels", "1")
	params.Set("punctuate", "true")
	params.Set("smart_format", "true")
	params.Set("interim_results", "true")
	params.Set("vad_events", "true")

	wsURL := fmt.Sprintf("wss://api.deepgram.com/v1/listen?%s", params.Encode())
	headers := map[string][]string{
		"Authorization": {"Token " + s.apiKey},
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.Dial(wsURL, headers)
	if err != nil {
		if resp != nil {
			s.log.Error().Int("status", resp.StatusCode).Msg("deepgram connection refused")
		}
		return fmt.Errorf("failed to connect to deepgram: %w", err)
	}

	s.conn = conn
	s.connected = true

	go s.handleMessages()
	go s.sendAudioData()

	s.log.Info().Str("model", s.opts.Model).Msg("connected to deepgram streaming")
	return nil
}

// SendPCM16KLE queues a 16-bit little-endian mono PCM buffer for
// delivery. Returns an error if the service is not connected; drops the
// buffer rather than blocking when the queue is full.
func (s *DeepgramService) SendPCM16KLE(pcm []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return fmt.Errorf("not connected to deepgram")
	}
	select {
	case s.audioData <- pcm:
		return nil
	default:
		s.log.Warn().Msg("audio buffer full, dropping packet")
		return nil
	}
}

// Close terminates the stream and releases resources. Idempotent.
// stopCh is closed before the lock is taken so a blocked emit can drain.
func (s *DeepgramService) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCh)
		s.mu.Lock()
		if s.conn != nil {
			_ = s.conn.WriteJSON(map[string]string{"type": "CloseStream"})
			_ = s.conn.Close()
		}
		s.connected = false
		s.conn = nil
		s.mu.Unlock()
		s.closeEvents()
		s.log.Info().Msg("deepgram connection closed")
	})
	return nil
}

// closeEvents closes the events channel exactly once. The flag is
// flipped under the write lock, which excludes every in-flight emit, so
// the close below cannot race a send.
func (s *DeepgramService) closeEvents() {
	s.mu.Lock()
	if s.eventsClosed {
		s.mu.Unlock()
		return
	}
	s.eventsClosed = true
	s.mu.Unlock()
	close(s.events)
}

// abortConnection tears the connection down after a mid-session socket
// failure. Closing the events channel signals the consumer that the
// stream is gone.
func (s *DeepgramService) abortConnection() {
	s.mu.Lock()
	if s.connected {
		s.connected = false
		if s.conn != nil {
			_ = s.conn.Close()
			s.conn = nil
		}
	}
	s.mu.Unlock()
	s.closeEvents()
}

// handleMessages reads WebSocket frames until the socket dies or the
// service stops.
func (s *DeepgramService) handleMessages() {
	for {
		select {
		case <-s.stopCh:
			return
		default:
			s.mu.RLock()
			conn := s.conn
			s.mu.RUnlock()
			if conn == nil {
				return
			}
			_, message, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-s.stopCh:
				default:
					s.log.Warn().Err(err).Msg("deepgram read error")
					s.abortConnection()
				}
				return
			}
			s.processMessage(message)
		}
	}
}

// processMessage parses a Deepgram frame and forwards transcript events.
// Per-event parse failures are logged and skipped; they never terminate
// the stream.
func (s *DeepgramService) processMessage(message []byte) {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &base); err != nil {
		s.log.Warn().Err(err).Msg("unparseable deepgram message")
		return
	}
	switch base.Type {
	case "Results":
		var msg resultsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.log.Warn().Err(err).Msg("bad Results message")
			return
		}
		if len(msg.Channel.Alternatives) == 0 {
			return
		}
		alt := msg.Channel.Alternatives[0]
		if alt.Transcript == "" {
			return
		}
		s.emit(Event{
			Text:       alt.Transcript,
			IsFinal:    msg.IsFinal,
			Confidence: alt.Confidence,
			Timestamp:  msg.Start,
		})
	case "Metadata":
		var msg metadataMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			s.log.Debug().Str("requestId", msg.RequestID).Msg("deepgram session metadata")
		}
	case "UtteranceEnd", "SpeechStarted":
		// VAD markers; the pipeline keys off is_final instead.
	default:
		s.log.Debug().Str("type", base.Type).Msg("unhandled deepgram message type")
	}
}

// emit delivers an event. Final events are never dropped; interim ones
// may be when the consumer lags. Holding the read lock keeps the events
// channel open for the duration of the send.
func (s *DeepgramService) emit(ev Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.eventsClosed {
		return
	}
	if ev.IsFinal {
		select {
		case <-s.stopCh:
		case s.events <- ev:
		}
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}

// sendAudioData writes queued audio frames and periodic keepalives.
func (s *DeepgramService) sendAudioData() {
	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-keepAlive.C:
			s.mu.RLock()
			conn := s.conn
			s.mu.RUnlock()
			if conn != nil {
				if err := conn.WriteJSON(map[string]string{"type": "KeepAlive"}); err != nil {
					s.log.Warn().Err(err).Msg("keepalive write failed")
					s.abortConnection()
					return
				}
			}
		case pcm := <-s.audioData:
			s.mu.RLock()
			conn := s.conn
			s.mu.RUnlock()
			if conn == nil {
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
				s.log.Warn().Err(err).Msg("audio write failed")
				s.abortConnection()
				return
			}
		}
	}
}

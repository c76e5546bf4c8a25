// Package pipeline owns the audio-to-response lifecycle: it wires the
// audio source to the transcriber, turns final transcripts into
// generation prompts and fans results out to observers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/audio"
	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/events"
	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/hub"
	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/logging"
	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/metrics"
	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/transcript"
	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/trigger"
)

// promptContextEntries is how many recent final transcripts are joined
// into the generation prompt.
const promptContextEntries = 5

// contextFieldRunes caps the context echoed back in response envelopes.
const contextFieldRunes = 100

// State of the coordinator's lifecycle.
type State int32

// Lifecycle states.
const (
	StateIdle State = iota
	StateInitializing
	StateActive
	StateShuttingDown
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateShuttingDown:
		return "shutting_down"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Transcriber is the speech-to-text channel capability.
type Transcriber interface {
	Connect() error
	SendPCM16KLE(pcm []byte) error
	Events() <-chan transcript.Event
	Close() error
}

// Generator produces a response for a transcript/question pair. Failures
// resolve to a fallback string inside the generator, never an error.
type Generator interface {
	Generate(ctx context.Context, transcriptText, question string) string
}

// Broadcaster delivers envelopes to all observers.
type Broadcaster interface {
	Broadcast(env hub.Envelope)
}

// Options wires a Coordinator.
type Options struct {
	Transcriber Transcriber
	Engine      Generator
	Policy      *trigger.Policy
	Hub         Broadcaster
	// Source is optional; without one, audio arrives via FeedPCM.
	Source audio.Source
	// Publisher is optional; mirrors transcript events to Kafka.
	Publisher *events.Publisher
	// ChunkBytes is the frame size read from the source per iteration.
	ChunkBytes int
	// TranscriptBuffer bounds the rolling transcript log.
	TranscriptBuffer int
}

// Coordinator runs the transcription-to-response pipeline.
type Coordinator struct {
	transcriber Transcriber
	engine      Generator
	policy      *trigger.Policy
	hub         Broadcaster
	source      audio.Source
	publisher   *events.Publisher
	chunkBytes  int
	recent      *transcriptLog
	log         zerolog.Logger

	mu            sync.Mutex
	state         State
	stopRequested bool
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// New creates a Coordinator in the Idle state.
func New(opts Options) *Coordinator {
	if opts.ChunkBytes <= 0 {
		opts.ChunkBytes = 3200
	}
	return &Coordinator{
		transcriber: opts.Transcriber,
		engine:      opts.Engine,
		policy:      opts.Policy,
		hub:         opts.Hub,
		source:      opts.Source,
		publisher:   opts.Publisher,
		chunkBytes:  opts.ChunkBytes,
		recent:      newTranscriptLog(opts.TranscriptBuffer),
		log:         logging.WithComponent("pipeline"),
	}
}

// State reports the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start moves Idle -> Initializing -> Active: connects the transcriber,
// announces listening and starts the pumps.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("pipeline is %s, not idle", state)
	}
	c.state = StateInitializing
	c.stopRequested = false
	c.mu.Unlock()

	if err := c.transcriber.Connect(); err != nil {
		c.mu.Lock()
		c.state = StateIdle
		c.stopRequested = false
		c.mu.Unlock()
		c.hub.Broadcast(hub.NewStatus("error", map[string]any{
			"message": fmt.Sprintf("Transcriber connection failed: %v", err),
		}))
		return fmt.Errorf("connecting transcriber: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	// A stop may have been requested while the connect was in flight.
	if c.stopRequested {
		c.stopRequested = false
		c.state = StateIdle
		c.mu.Unlock()
		cancel()
		_ = c.transcriber.Close()
		return fmt.Errorf("pipeline stopped during initialization")
	}
	c.cancel = cancel
	c.state = StateActive
	c.mu.Unlock()

	c.hub.Broadcast(hub.NewStatus("listening", map[string]any{
		"message": "Audio capture active",
	}))
	c.log.Info().Msg("pipeline active")

	c.wg.Add(1)
	go c.eventLoop(runCtx)

	if c.source != nil {
		c.wg.Add(1)
		go c.audioPump(runCtx)
	}
	return nil
}

// Stop drives ShuttingDown -> Idle. Cleanup is unconditional: the audio
// source and the transcriber are released on every exit path.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if c.state == StateInitializing {
		// Connect is still in flight; Start finishes the shutdown.
		c.stopRequested = true
		c.mu.Unlock()
		return
	}
	if c.state != StateActive && c.state != StateError {
		c.mu.Unlock()
		return
	}
	c.state = StateShuttingDown
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c.source != nil {
		_ = c.source.Close()
	}
	_ = c.transcriber.Close()
	c.wg.Wait()

	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
	c.log.Info().Msg("pipeline stopped")
}

// FeedPCM forwards an externally supplied audio chunk to the
// transcriber. Only valid while Active.
func (c *Coordinator) FeedPCM(pcm []byte) error {
	if c.State() != StateActive {
		return fmt.Errorf("pipeline not active")
	}
	metrics.Default.AudioBytesReceived.Add(float64(len(pcm)))
	return c.transcriber.SendPCM16KLE(pcm)
}

// fail reports a pipeline-level failure and shuts down. It runs the
// shutdown on a fresh goroutine because it is called from the pumps,
// which Stop waits on.
func (c *Coordinator) fail(msg string) {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return
	}
	c.state = StateError
	c.mu.Unlock()

	c.log.Error().Str("reason", msg).Msg("pipeline failure")
	c.hub.Broadcast(hub.NewStatus("error", map[string]any{"message": msg}))
	go c.Stop()
}

// audioPump reads frames from the blocking source off the coordination
// goroutines and forwards them to the transcriber.
func (c *Coordinator) audioPump(ctx context.Context) {
	defer c.wg.Done()
	buf := make([]byte, c.chunkBytes)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := c.source.Read(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if errors.Is(err, io.EOF) {
				c.log.Info().Msg("audio source drained")
				c.hub.Broadcast(hub.NewStatus("stopped", map[string]any{
					"message": "Audio source ended",
				}))
				go c.Stop()
				return
			}
			c.fail(fmt.Sprintf("Audio pipeline error: %v", err))
			return
		}
		if n == 0 {
			continue
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		metrics.Default.AudioBytesReceived.Add(float64(n))
		if err := c.transcriber.SendPCM16KLE(frame); err != nil {
			c.fail(fmt.Sprintf("Audio pipeline error: %v", err))
			return
		}
	}
}

// eventLoop consumes transcript events until the channel closes or the
// run context is cancelled.
func (c *Coordinator) eventLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.transcriber.Events():
			if !ok {
				if c.State() == StateActive {
					c.fail("Transcriber connection lost")
				}
				return
			}
			c.handleEvent(ctx, ev)
		}
	}
}

// handleEvent broadcasts every transcript and, for triggering finals,
// runs one generation and broadcasts the response. Per-event failures
// never terminate the loop.
func (c *Coordinator) handleEvent(ctx context.Context, ev transcript.Event) {
	c.hub.Broadcast(hub.NewTranscript(ev.Text, ev.IsFinal, ev.Confidence))
	if ev.IsFinal {
		metrics.Default.TranscriptsFinal.Inc()
	} else {
		metrics.Default.TranscriptsPartial.Inc()
	}

	if c.publisher != nil {
		mirror := events.TranscriptEvent{
			Text:       ev.Text,
			IsFinal:    ev.IsFinal,
			Confidence: ev.Confidence,
			Timestamp:  ev.Timestamp,
		}
		if err := c.publisher.Publish(ctx, mirror); err != nil {
			c.log.Warn().Err(err).Msg("transcript mirror failed")
		}
	}

	text := strings.TrimSpace(ev.Text)
	if !ev.IsFinal || text == "" {
		return
	}
	c.recent.Append(text)

	if !c.policy.ShouldRespond(text) {
		return
	}

	start := time.Now()
	promptContext := c.recent.Tail(promptContextEntries)
	answer := c.engine.Generate(ctx, promptContext, text)
	latencyMS := int(time.Since(start).Milliseconds())

	c.hub.Broadcast(hub.NewResponse(answer, tailRunes(promptContext, contextFieldRunes), latencyMS))
	c.log.Info().Int("latencyMs", latencyMS).Msg("response generated")
}

// tailRunes returns the last n runes of s.
func tailRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

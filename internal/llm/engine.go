package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/logging"
	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/metrics"
)

// DefaultSystemPrompt frames every generation request.
const DefaultSystemPrompt = `You are an intelligent assistant helping during a video call.
Provide brief, actionable answers in under 50 words.
Focus on key concepts and frameworks.`

// FallbackMessage is returned when every provider failed or was skipped.
const FallbackMessage = "Unable to generate response. Please check your API keys and internet connection."

// DefaultFailureThreshold is the consecutive-failure count past which a
// provider is skipped until it succeeds again.
const DefaultFailureThreshold = 3

// Engine produces responses by trying providers in priority order,
// tracking per-provider health and falling back to a fixed message when
// all candidates are exhausted.
type Engine struct {
	providers    []Provider
	window       *ContextWindow
	systemPrompt string
	threshold    int
	log          zerolog.Logger

	mu       sync.Mutex
	failures map[string]int
}

// NewEngine creates a failover engine over the given providers, in
// priority order (fastest and most reliable first).
func NewEngine(providers []Provider, window *ContextWindow, threshold int) *Engine {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	return &Engine{
		providers:    providers,
		window:       window,
		systemPrompt: DefaultSystemPrompt,
		threshold:    threshold,
		log:          logging.WithComponent("engine"),
		failures:     make(map[string]int),
	}
}

// Window returns the conversation context owned by this engine.
func (e *Engine) Window() *ContextWindow { return e.window }

// Failures returns a copy of the per-provider consecutive-failure counts.
func (e *Engine) Failures() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]int, len(e.failures))
	for k, v := range e.failures {
		out[k] = v
	}
	return out
}

// ResetHealth clears all failure counters. Intended for session
// boundaries only; there is no time-based half-open retry.
func (e *Engine) ResetHealth() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures = make(map[string]int)
}

// Generate builds the prompt from the system prompt, the context window
// and the transcript (question-qualified if provided), then tries each
// provider in order. The first non-empty success wins and is recorded in
// the context window. If everything fails the fixed fallback message is
// returned and the window is left untouched.
func (e *Engine) Generate(ctx context.Context, transcript string, question string) string {
	userMessage := fmt.Sprintf("Based on this conversation, provide a helpful insight:\n\n%s", transcript)
	if question != "" {
		userMessage = fmt.Sprintf("Question: %s\n\nContext: %s", question, transcript)
	}

	messages := make([]Message, 0, e.window.Len()+2)
	messages = append(messages, Message{Role: RoleSystem, Content: e.systemPrompt})
	messages = append(messages, e.window.Snapshot()...)
	messages = append(messages, Message{Role: RoleUser, Content: userMessage})

	start := time.Now()
	for _, p := range e.providers {
		name := p.Name()
		if e.failureCount(name) > e.threshold {
			metrics.Default.ProviderSkipped.WithLabelValues(name).Inc()
			e.log.Debug().Str("provider", name).Msg("provider skipped by circuit breaker")
			continue
		}

		text, err := p.Generate(ctx, messages)
		if err != nil || text == "" {
			e.recordFailure(name)
			metrics.Default.GenerationsTotal.WithLabelValues(name, "failure").Inc()
			metrics.Default.ProviderFailures.WithLabelValues(name).Inc()
			e.log.Warn().Err(err).Str("provider", name).Msg("provider failed")
			continue
		}

		e.recordSuccess(name)
		e.window.Append(RoleUser, userMessage)
		e.window.Append(RoleAssistant, text)
		metrics.Default.GenerationsTotal.WithLabelValues(name, "success").Inc()
		metrics.Default.GenerationLatency.Observe(time.Since(start).Seconds())
		e.log.Info().Str("provider", name).Dur("elapsed", time.Since(start)).Msg("generation succeeded")
		return text
	}

	metrics.Default.GenerationLatency.Observe(time.Since(start).Seconds())
	e.log.Error().Msg("all LLM providers failed")
	return FallbackMessage
}

func (e *Engine) failureCount(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failures[name]
}

func (e *Engine) recordFailure(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[name]++
}

func (e *Engine) recordSuccess(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[name] = 0
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/audio"
	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/config"
	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/events"
	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/hub"
	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/httpserver"
	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/llm"
	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/logging"
	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/pipeline"
	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/transcript"
	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/trigger"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	window := llm.NewContextWindow(cfg.ContextWindowSize)
	engine := llm.NewEngine(buildProviders(cfg), window, cfg.FailureThreshold)

	h := hub.New()
	h.OnClearContext(window.Clear)

	transcriber := transcript.NewDeepgramService(cfg.DeepgramKey, transcript.Options{
		Model:      cfg.DeepgramModel,
		Language:   cfg.DeepgramLanguage,
		SampleRate: cfg.SampleRate,
	})

	source := buildAudioSource(cfg)

	publisher := events.New(&events.Config{
		Brokers:      cfg.KafkaBrokers,
		TopicPartial: cfg.KafkaTopicPartial,
		TopicFinal:   cfg.KafkaTopicFinal,
	})
	defer publisher.Close()

	coord := pipeline.New(pipeline.Options{
		Transcriber:      transcriber,
		Engine:           engine,
		Policy:           trigger.NewPolicy(cfg.TriggerKeywords),
		Hub:              h,
		Source:           source,
		Publisher:        publisher,
		ChunkBytes:       cfg.ChunkBytes,
		TranscriptBuffer: cfg.TranscriptBufferSize,
	})
	defer coord.Stop()

	e := httpserver.New()
	httpserver.NewHandlers(coord, h).Register(e)

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.HTTPAddress).Msg("server listening")
		serverErrors <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown failed")
		_ = server.Close()
	}
}

// buildProviders assembles the failover chain in priority order. Hosted
// providers without an API key are left out; the local Ollama endpoint
// is always the last resort.
func buildProviders(cfg config.Config) []llm.Provider {
	var providers []llm.Provider
	if cfg.GroqKey != "" {
		providers = append(providers, llm.NewGroqClient(cfg.GroqKey, cfg.GroqModel))
	}
	if cfg.SambaNovaKey != "" {
		providers = append(providers, llm.NewSambaNovaClient(cfg.SambaNovaKey))
	}
	if cfg.TogetherKey != "" {
		providers = append(providers, llm.NewTogetherClient(cfg.TogetherKey))
	}
	providers = append(providers, llm.NewOllamaClient(cfg.OllamaURL, cfg.OllamaModel))
	return providers
}

// buildAudioSource resolves the configured capture mode. Returns nil for
// "http", where audio arrives through POST /audio instead of a local
// device or file.
func buildAudioSource(cfg config.Config) audio.Source {
	switch cfg.AudioSource {
	case "mic":
		src, err := audio.NewMicrophoneSource(cfg.SampleRate, cfg.ChunkBytes)
		if err != nil {
			log.Fatal().Err(err).Msg("cannot open microphone")
		}
		return src
	case "file":
		src, err := audio.NewFileSource(cfg.AudioFile, cfg.SampleRate, true)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.AudioFile).Msg("cannot open audio file")
		}
		return src
	default:
		return nil
	}
}

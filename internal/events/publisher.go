// Package events mirrors transcript events to Kafka topics for
// downstream consumers outside the live observer fan-out.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/logging"
)

// Publisher writes partial and final transcript events to separate
// topics. With no brokers configured it runs in log-only mode and every
// publish is a no-op.
type Publisher struct {
	writerPartial *kafka.Writer
	writerFinal   *kafka.Writer
	enabled       bool
	log           zerolog.Logger
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers      []string
	TopicPartial string
	TopicFinal   string
}

// TranscriptEvent is the payload mirrored to Kafka.
type TranscriptEvent struct {
	Text       string  `json:"text"`
	IsFinal    bool    `json:"is_final"`
	Confidence float64 `json:"confidence"`
	Timestamp  float64 `json:"timestamp,omitempty"`
}

// New creates a publisher. A nil config or empty broker list yields
// log-only mode.
func New(cfg *Config) *Publisher {
	logger := logging.WithComponent("events")
	if cfg == nil || len(cfg.Brokers) == 0 {
		logger.Info().Msg("kafka disabled, using log-only mode")
		return &Publisher{enabled: false, log: logger}
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
		}
	}

	logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicPartial", cfg.TopicPartial).
		Str("topicFinal", cfg.TopicFinal).
		Msg("kafka publisher initialized")

	return &Publisher{
		writerPartial: newWriter(cfg.TopicPartial),
		writerFinal:   newWriter(cfg.TopicFinal),
		enabled:       true,
		log:           logger,
	}
}

// Publish mirrors one transcript event to the topic matching its
// finality. Errors are returned so callers can log them, but a mirror
// failure never affects the live pipeline.
func (p *Publisher) Publish(ctx context.Context, ev TranscriptEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if !p.enabled {
		p.log.Debug().RawJSON("event", payload).Msg("log-only publish")
		return nil
	}

	writer := p.writerPartial
	if ev.IsFinal {
		writer = p.writerFinal
	}
	msg := kafka.Message{Value: payload}
	if err := writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error().Err(err).Bool("final", ev.IsFinal).Msg("kafka write failed")
		return err
	}
	return nil
}

// Close closes both writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerPartial != nil {
		if e := p.writerPartial.Close(); e != nil {
			err = e
		}
	}
	if p.writerFinal != nil {
		if e := p.writerFinal.Close(); e != nil {
			err = e
		}
	}
	return err
}

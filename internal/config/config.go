package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string

	// Deepgram streaming STT
	DeepgramKey      string
	DeepgramModel    string
	DeepgramLanguage string
	SampleRate       int
	// Audio frame size in bytes fed to the transcriber per read.
	ChunkBytes int

	// LLM providers, in failover priority order
	GroqKey      string
	GroqModel    string
	SambaNovaKey string
	TogetherKey  string
	OllamaURL    string
	OllamaModel  string

	ContextWindowSize    int
	TranscriptBufferSize int
	FailureThreshold     int
	TriggerKeywords      []string

	// Audio input: "mic", "file" or "http" (feed via POST /audio only)
	AudioSource string
	AudioFile   string

	// Optional Kafka mirror of transcript events
	KafkaBrokers      []string
	KafkaTopicPartial string
	KafkaTopicFinal   string

	LogLevel  string
	LogFormat string
}

// tunables is the optional YAML overlay for values that operators tweak
// without touching the environment.
type tunables struct {
	Trigger struct {
		Keywords []string `yaml:"keywords"`
	} `yaml:"trigger"`
	Context struct {
		WindowSize       int `yaml:"window_size"`
		TranscriptBuffer int `yaml:"transcript_buffer"`
	} `yaml:"context"`
	Providers struct {
		FailureThreshold int `yaml:"failure_threshold"`
	} `yaml:"providers"`
}

// Load reads environment variables (and an optional .env file) and returns
// Config with sane defaults. A YAML tunables file referenced by
// TUNABLES_FILE overrides trigger/context/provider knobs.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file loaded")
	}

	cfg := Config{
		HTTPAddress:          envOrDefault("HTTP_ADDRESS", ":8080"),
		DeepgramKey:          os.Getenv("DEEPGRAM_API_KEY"),
		DeepgramModel:        envOrDefault("DEEPGRAM_MODEL", "nova-2"),
		DeepgramLanguage:     envOrDefault("DEEPGRAM_LANGUAGE", "en-US"),
		SampleRate:           envIntOrDefault("AUDIO_SAMPLE_RATE", 16000),
		ChunkBytes:           envIntOrDefault("AUDIO_CHUNK_BYTES", 3200),
		GroqKey:              os.Getenv("GROQ_API_KEY"),
		GroqModel:            envOrDefault("GROQ_MODEL", "llama-3.1-70b-versatile"),
		SambaNovaKey:         os.Getenv("SAMBANOVA_API_KEY"),
		TogetherKey:          os.Getenv("TOGETHER_API_KEY"),
		OllamaURL:            envOrDefault("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:          envOrDefault("OLLAMA_MODEL", "llama3.2:3b"),
		ContextWindowSize:    envIntOrDefault("CONTEXT_WINDOW_SIZE", 5),
		TranscriptBufferSize: envIntOrDefault("TRANSCRIPT_BUFFER_SIZE", 10),
		FailureThreshold:     envIntOrDefault("PROVIDER_FAILURE_THRESHOLD", 3),
		AudioSource:          envOrDefault("AUDIO_SOURCE", "http"),
		AudioFile:            os.Getenv("AUDIO_FILE"),
		KafkaTopicPartial:    envOrDefault("KAFKA_TOPIC_PARTIAL", "transcripts.partial"),
		KafkaTopicFinal:      envOrDefault("KAFKA_TOPIC_FINAL", "transcripts.final"),
		LogLevel:             envOrDefault("LOG_LEVEL", "info"),
		LogFormat:            envOrDefault("LOG_FORMAT", "json"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	if kw := os.Getenv("TRIGGER_KEYWORDS"); kw != "" {
		cfg.TriggerKeywords = splitAndTrim(kw)
	}

	if path := os.Getenv("TUNABLES_FILE"); path != "" {
		applyTunables(&cfg, path)
	}

	if cfg.DeepgramKey == "" {
		log.Warn().Msg("DEEPGRAM_API_KEY not set - transcription will not work")
	}
	if cfg.GroqKey == "" && cfg.SambaNovaKey == "" && cfg.TogetherKey == "" {
		log.Warn().Msg("no hosted LLM API keys set - only the local Ollama provider is available")
	}

	log.Info().
		Str("httpAddress", cfg.HTTPAddress).
		Str("audioSource", cfg.AudioSource).
		Int("sampleRate", cfg.SampleRate).
		Msg("config loaded")
	return cfg
}

func applyTunables(cfg *Config, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("cannot read tunables file")
		return
	}
	var t tunables
	if err := yaml.Unmarshal(data, &t); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("cannot parse tunables file")
		return
	}
	if len(t.Trigger.Keywords) > 0 {
		cfg.TriggerKeywords = t.Trigger.Keywords
	}
	if t.Context.WindowSize > 0 {
		cfg.ContextWindowSize = t.Context.WindowSize
	}
	if t.Context.TranscriptBuffer > 0 {
		cfg.TranscriptBufferSize = t.Context.TranscriptBuffer
	}
	if t.Providers.FailureThreshold > 0 {
		cfg.FailureThreshold = t.Providers.FailureThreshold
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid integer env value, using default")
		return def
	}
	return n
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

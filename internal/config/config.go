// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
)

// ServiceConfig holds process-level settings.
type ServiceConfig struct {
	Principal   string
	HTTPPort    string
	MetricsPort string
}

// RecognitionConfig holds speech-to-text engine settings.
type RecognitionConfig struct {
	Provider        string // mock, google, none
	LanguageCode    string
	MaxAlternatives int
	InterimResults  bool
	SampleRateHz    int
	CredentialsFile string
}

// SynthesisConfig holds speech-output settings.
type SynthesisConfig struct {
	Provider     string // log, exec
	Command      string
	LanguageCode string
	Rate         float64
}

// StoreConfig holds document store settings.
type StoreConfig struct {
	Provider        string // memory, sqlite, firestore
	Collection      string
	ProjectID       string
	CredentialsFile string
	SQLitePath      string
}

// KafkaConfig holds event publisher settings.
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	TopicPartial string
	TopicFinal   string
	TopicRecord  string
	Principal    string
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel string
}

// Configuration is the full service configuration.
type Configuration struct {
	Service       ServiceConfig
	Recognition   RecognitionConfig
	Synthesis     SynthesisConfig
	Store         StoreConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// Load reads configuration from environment variables, falling back to
// defaults on missing or unparsable values.
func Load() *Configuration {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-speech-dictation")

	return &Configuration{
		Service: ServiceConfig{
			Principal:   principal,
			HTTPPort:    envOrDefault("HTTP_PORT", "8080"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
		Recognition: RecognitionConfig{
			Provider:        envOrDefault("RECOGNITION_PROVIDER", "mock"),
			LanguageCode:    envOrDefault("RECOGNITION_LANGUAGE_CODE", "th-TH"),
			MaxAlternatives: envOrDefaultInt("RECOGNITION_MAX_ALTERNATIVES", 3),
			InterimResults:  envOrDefaultBool("RECOGNITION_INTERIM_RESULTS", true),
			SampleRateHz:    envOrDefaultInt("RECOGNITION_SAMPLE_RATE_HZ", 16000),
			CredentialsFile: envOrDefault("RECOGNITION_CREDENTIALS_FILE", ""),
		},
		Synthesis: SynthesisConfig{
			Provider:     envOrDefault("SYNTHESIS_PROVIDER", "log"),
			Command:      envOrDefault("SYNTHESIS_COMMAND", "espeak-ng -v {lang} -s {wpm}"),
			LanguageCode: envOrDefault("SYNTHESIS_LANGUAGE_CODE", "th-TH"),
			Rate:         envOrDefaultFloat("SYNTHESIS_RATE", 0.9),
		},
		Store: StoreConfig{
			Provider:        envOrDefault("STORE_PROVIDER", "memory"),
			Collection:      envOrDefault("STORE_COLLECTION", "speech-results"),
			ProjectID:       envOrDefault("STORE_PROJECT_ID", ""),
			CredentialsFile: envOrDefault("STORE_CREDENTIALS_FILE", ""),
			SQLitePath:      envOrDefault("STORE_SQLITE_PATH", "data/dictation.db"),
		},
		Kafka: KafkaConfig{
			Enabled:      envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:      envOrDefaultList("KAFKA_BROKERS", nil),
			TopicPartial: envOrDefault("KAFKA_TOPIC_PARTIAL", "dictation.transcript.partial"),
			TopicFinal:   envOrDefault("KAFKA_TOPIC_FINAL", "dictation.transcript.final"),
			TopicRecord:  envOrDefault("KAFKA_TOPIC_RECORD", "dictation.record"),
			Principal:    envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			LogLevel: envOrDefault("LOG_LEVEL", "info"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

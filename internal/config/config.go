// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ModeMock selects the offline model and keyword classifier.
const ModeMock = "MOCK"

// Config holds all application configuration.
type Config struct {
	Port              string
	GRPCPort          string // "" disables the gRPC health endpoint
	FrontendURL       string
	StoreDriver       string // "sqlite" or "memory"
	DBPath            string
	SessionTTL        time.Duration // 0 disables expiry sweeping
	SweepInterval     time.Duration
	KnowledgeBasePath string
	Mode              string
	LLM               LLMConfig
	Conversation      ConversationConfig
	RateLimit         RateLimitConfig
	ConversationLog   ConversationLogConfig
}

// LLMConfig configures the language model provider.
type LLMConfig struct {
	Provider        string
	Model           string
	ClassifierModel string
	APIKey          string
	BaseURL         string
	Temperature     float64
	MaxTokens       int
	Timeout         time.Duration
}

// ConversationConfig tunes response generation.
type ConversationConfig struct {
	HistoryWindow int
	RetrievalTopK int
}

// RateLimitConfig controls per-client request throttling.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	model := getEnv("LLM_MODEL", "claude-3-haiku-20240307")
	apiKey := getEnv("LLM_API_KEY", "")
	if apiKey == "" {
		apiKey = getEnv("ANTHROPIC_API_KEY", "")
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		GRPCPort:          getEnv("GRPC_PORT", "9090"),
		FrontendURL:       getEnv("FRONTEND_URL", ""),
		StoreDriver:       strings.ToLower(getEnv("STORE_DRIVER", "sqlite")),
		DBPath:            getEnv("DB_PATH", "./data/autostream.db"),
		SessionTTL:        getEnvDuration("SESSION_TTL", 24*time.Hour),
		SweepInterval:     getEnvDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		KnowledgeBasePath: getEnv("KNOWLEDGE_BASE_PATH", "./knowledge_base/product_info.json"),
		Mode:              strings.ToUpper(getEnv("AUTOSTREAM_MODE", "")),
		LLM: LLMConfig{
			Provider:        strings.ToLower(getEnv("LLM_PROVIDER", "anthropic")),
			Model:           model,
			ClassifierModel: getEnv("LLM_CLASSIFIER_MODEL", model),
			APIKey:          apiKey,
			BaseURL:         getEnv("LLM_BASE_URL", ""),
			Temperature:     getEnvFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:       getEnvInt("LLM_MAX_TOKENS", 500),
			Timeout:         getEnvDuration("LLM_TIMEOUT", 30*time.Second),
		},
		Conversation: ConversationConfig{
			HistoryWindow: getEnvInt("HISTORY_WINDOW", 6),
			RetrievalTopK: getEnvInt("RETRIEVAL_TOP_K", 3),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 30),
			WindowDuration:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:   getEnvBool("CONVERSATION_LOG_ENABLED", false),
			Dir:       getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			QueueSize: queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.StoreDriver {
	case "sqlite":
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	case "memory":
	default:
		return fmt.Errorf("STORE_DRIVER must be sqlite or memory, got %q", c.StoreDriver)
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("SESSION_TTL cannot be negative")
	}
	if c.SessionTTL > 0 && c.SweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be > 0")
	}
	if !c.IsMock() {
		switch c.LLM.Provider {
		case "anthropic", "openai":
			if c.LLM.APIKey == "" {
				return fmt.Errorf("missing API key for provider %s (set ANTHROPIC_API_KEY or LLM_API_KEY)", c.LLM.Provider)
			}
		case "ollama":
		default:
			return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLM.Provider)
		}
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be > 0")
	}
	if c.Conversation.HistoryWindow <= 0 {
		return fmt.Errorf("HISTORY_WINDOW must be > 0")
	}
	if c.Conversation.RetrievalTopK <= 0 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be > 0")
	}
	if c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("rate limit requests and window must be > 0")
	}
	if c.ConversationLog.Enabled && c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	return nil
}

// IsMock returns true when running against the offline model.
func (c *Config) IsMock() bool {
	return c.Mode == ModeMock
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// getEnvDuration accepts Go duration strings; a bare "0" disables.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if value == "0" {
		return 0
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

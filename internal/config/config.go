// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Port         string
	DBPath       string
	PolicyDBPath string

	// Origin allowed for browser clients; "*" in development.
	FrontendURL string
	Env         string

	// Gemini API settings.
	GeminiAPIKey   string
	RouterModel    string
	GenerateModel  string
	EmbeddingModel string

	// Conversation turns supplied to the classifier as context.
	HistoryWindow int

	// Passages retrieved per policy question.
	RetrievalK int

	// Default allowances for env-overridable leave types.
	AnnualAllowance   int
	SickAllowance     int
	PersonalAllowance int

	ConversationLog ConversationLogConfig
}

// ConversationLogConfig controls NDJSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DBPath:            getEnv("DB_PATH", "./data/virtualhr.db"),
		PolicyDBPath:      getEnv("POLICY_DB_PATH", "./data/policy.db"),
		FrontendURL:       getEnv("FRONTEND_URL", "*"),
		Env:               getEnv("APP_ENV", "development"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		RouterModel:       getEnv("ROUTER_MODEL", "gemini-2.5-flash"),
		GenerateModel:     getEnv("GENERATE_MODEL", "gemini-2.5-flash"),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
		HistoryWindow:     getEnvInt("HISTORY_WINDOW", 10),
		RetrievalK:        getEnvInt("RETRIEVAL_K", 3),
		AnnualAllowance:   getEnvInt("DEFAULT_ANNUAL_LEAVE_BALANCE", 20),
		SickAllowance:     getEnvInt("DEFAULT_SICK_LEAVE_BALANCE", 10),
		PersonalAllowance: getEnvInt("DEFAULT_PERSONAL_LEAVE_BALANCE", 5),
		ConversationLog: ConversationLogConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", true),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:     queueSize,
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
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.PolicyDBPath == "" {
		return fmt.Errorf("POLICY_DB_PATH cannot be empty")
	}
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("HISTORY_WINDOW must be > 0")
	}
	if c.RetrievalK <= 0 {
		return fmt.Errorf("RETRIEVAL_K must be > 0")
	}
	if c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Missing reports required settings that are absent. The health probe surfaces
// these as a degraded status instead of refusing to start.
func (c *Config) Missing() []string {
	var missing []string
	if c.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	return missing
}

// Allowances returns the per-type leave allowance map. Bereavement has no
// fixed allowance and is intentionally absent.
func (c *Config) Allowances() map[string]int {
	return map[string]int{
		"Annual":    c.AnnualAllowance,
		"Sick":      c.SickAllowance,
		"Personal":  c.PersonalAllowance,
		"Maternity": 90,
		"Paternity": 15,
		"Marriage":  5,
	}
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

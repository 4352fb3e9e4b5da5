// Package config loads the analyzer's runtime settings from the environment
// and the user's config.env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	AppName     = "ecg-analyzer"
	EnvFileName = "config.env"
)

// Providers
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Defaults
const (
	DefaultListenAddr    = ":8080"
	DefaultMaxUploadMB   = 10
	DefaultSessionTTL    = 30 * time.Minute
	DefaultPromptVersion = "v1"
)

// Config holds every setting the server and CLI read at startup.
type Config struct {
	Provider string

	GeminiAPIKey string
	GeminiModel  string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	ListenAddr     string
	MaxUploadBytes int64
	SessionTTL     time.Duration
	SessionSecret  string
	CORSOrigins    []string

	PromptFile    string
	PromptVersion string

	LogLevel zerolog.Level
}

// Dir returns the application's config directory path.
// Creates the directory if it doesn't exist.
func Dir() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	configDir := filepath.Join(configBase, AppName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// FilePath returns the full path to the config file.
func FilePath() (string, error) {
	configDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, EnvFileName), nil
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Errors are ignored since the file may not exist.
func LoadEnvFile() {
	configPath, err := FilePath()
	if err != nil {
		return
	}
	_ = LoadEnvFileAt(configPath)
}

// LoadEnvFileAt loads path into the environment. Variables already set in the
// environment win over the file.
func LoadEnvFileAt(path string) error {
	return godotenv.Load(path)
}

// geminiKey returns GEMINI_API_KEY, falling back to API_KEY.
func geminiKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("API_KEY")
}

// provider returns the normalized provider name.
func provider() string {
	p := strings.ToLower(strings.TrimSpace(os.Getenv("ECG_PROVIDER")))
	if p == "" {
		return ProviderGemini
	}
	return p
}

// CheckRequired returns the names of required variables that are missing for
// the selected provider.
func CheckRequired() []string {
	switch provider() {
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return []string{"OPENAI_API_KEY"}
		}
	default:
		if geminiKey() == "" {
			return []string{"GEMINI_API_KEY"}
		}
	}
	return nil
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Provider:      provider(),
		GeminiAPIKey:  geminiKey(),
		GeminiModel:   os.Getenv("ECG_GEMINI_MODEL"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:   os.Getenv("ECG_OPENAI_MODEL"),
		ListenAddr:    envOr("ECG_LISTEN_ADDR", DefaultListenAddr),
		SessionSecret: os.Getenv("ECG_SESSION_SECRET"),
		CORSOrigins:   splitList(os.Getenv("ECG_CORS_ORIGINS")),
		PromptFile:    os.Getenv("ECG_PROMPT_FILE"),
		PromptVersion: envOr("ECG_PROMPT_VERSION", DefaultPromptVersion),
	}

	if cfg.Provider != ProviderGemini && cfg.Provider != ProviderOpenAI {
		return nil, fmt.Errorf("ECG_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, cfg.Provider)
	}

	maxMB := DefaultMaxUploadMB
	if v := os.Getenv("ECG_MAX_UPLOAD_MB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("ECG_MAX_UPLOAD_MB must be a positive integer, got %q", v)
		}
		maxMB = n
	}
	cfg.MaxUploadBytes = int64(maxMB) << 20

	cfg.SessionTTL = DefaultSessionTTL
	if v := os.Getenv("ECG_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("ECG_SESSION_TTL: %w", err)
		}
		if d <= 0 {
			return nil, errors.New("ECG_SESSION_TTL must be positive")
		}
		cfg.SessionTTL = d
	}

	cfg.LogLevel = zerolog.InfoLevel
	if v := os.Getenv("ECG_LOG_LEVEL"); v != "" {
		level, err := zerolog.ParseLevel(strings.ToLower(v))
		if err != nil {
			return nil, fmt.Errorf("ECG_LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = level
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

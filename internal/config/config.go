// Package config loads the chatbot configuration from the environment and an
// optional YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider names understood by the model gateway.
const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Store backends for the persistence mirror.
const (
	StoreMemory    = "memory"
	StorePostgres  = "postgres"
	StoreSQLite    = "sqlite"
	StoreFirestore = "firestore"
	StoreBolt      = "bolt"
)

// Language is a supported language code with its display name.
type Language struct {
	Code string `yaml:"code" json:"code"`
	Name string `yaml:"name" json:"name"`
}

// Config holds all configuration values.
type Config struct {
	Port string

	// Model gateway
	Provider        string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string
	GeminiAPIKey    string
	GeminiModel     string
	AnthropicAPIKey string
	AnthropicModel  string

	// Intake options
	AgeGroups       []string
	Languages       []Language
	DefaultLanguage string

	// Persistence mirror
	Store         string
	DatabaseURL   string
	NotifyChannel string
	FirestoreProj string
	BoltPath      string

	// Identity: bearer token -> user id
	APITokens map[string]string

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Cleanup sweep, zero disables it
	CleanupMaxAgeHours int
}

// DefaultAgeGroups is the closed set of age-group labels.
var DefaultAgeGroups = []string{
	"0-2 years (Infant)",
	"3-5 years (Toddler)",
	"6-12 years (Child)",
	"13-17 years (Adolescent)",
	"18-64 years (Adult)",
	"65+ years (Senior)",
}

// DefaultLanguages is the closed set of supported languages, in display order.
var DefaultLanguages = []Language{
	{Code: "english", Name: "English"},
	{Code: "hindi", Name: "हिंदी"},
	{Code: "bengali", Name: "বাংলা"},
	{Code: "telugu", Name: "తెలుగు"},
	{Code: "marathi", Name: "मराठी"},
	{Code: "tamil", Name: "தமிழ்"},
	{Code: "gujarati", Name: "ગુજરાતી"},
	{Code: "kannada", Name: "ಕನ್ನಡ"},
	{Code: "malayalam", Name: "മലയാളം"},
	{Code: "punjabi", Name: "ਪੰਜਾਬੀ"},
	{Code: "odia", Name: "ଓଡ଼ିଆ"},
	{Code: "urdu", Name: "اردو"},
	{Code: "assamese", Name: "অসমীয়া"},
}

// fileConfig is the subset of settings a YAML file may override.
type fileConfig struct {
	Provider        string     `yaml:"provider"`
	AgeGroups       []string   `yaml:"age_groups"`
	Languages       []Language `yaml:"languages"`
	DefaultLanguage string     `yaml:"default_language"`
}

// Load reads configuration from environment variables, then applies the YAML
// file named by CHATBOT_CONFIG_FILE if set.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnv("CHATBOT_PORT", "8080"),

		Provider:        strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-3-opus-20240229"),

		AgeGroups:       append([]string(nil), DefaultAgeGroups...),
		Languages:       append([]Language(nil), DefaultLanguages...),
		DefaultLanguage: "english",

		Store:         strings.ToLower(getEnv("CHATBOT_STORE", StoreMemory)),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		NotifyChannel: getEnv("POSTGRES_NOTIFY_CHANNEL", ""),
		FirestoreProj: getEnv("FIRESTORE_PROJECT", ""),
		BoltPath:      getEnv("CHATBOT_BOLT_PATH", "conversations.bolt"),

		APITokens: parseTokens(getEnv("CHATBOT_API_TOKENS", "")),

		LogFile:  getEnv("CHATBOT_LOG_FILE", "/tmp/symptom-chatbot.log"),
		LogLevel: parseLogLevel(getEnv("CHATBOT_LOG_LEVEL", "INFO")),

		CleanupMaxAgeHours: getEnvInt("CHATBOT_CLEANUP_MAX_AGE_HOURS", 0),
	}

	if path := os.Getenv("CHATBOT_CONFIG_FILE"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// ApplyFile overlays the settings found in a YAML file. Empty fields in the
// file leave the current values untouched.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if fc.Provider != "" {
		c.Provider = strings.ToLower(fc.Provider)
	}
	if len(fc.AgeGroups) > 0 {
		c.AgeGroups = fc.AgeGroups
	}
	if len(fc.Languages) > 0 {
		langs := make([]Language, 0, len(fc.Languages))
		for _, l := range fc.Languages {
			code := strings.ToLower(strings.TrimSpace(l.Code))
			if code == "" {
				return fmt.Errorf("config file %s: language without code", path)
			}
			if l.Name == "" {
				l.Name = code
			}
			langs = append(langs, Language{Code: code, Name: l.Name})
		}
		c.Languages = langs
	}
	if fc.DefaultLanguage != "" {
		c.DefaultLanguage = strings.ToLower(fc.DefaultLanguage)
	}
	return nil
}

// Validate reports a missing API key for the selected provider.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER is %q", c.Provider)
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER is %q", c.Provider)
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER is %q", c.Provider)
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.Provider)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// parseTokens reads "token=user,token2=user2". Malformed pairs are skipped.
func parseTokens(s string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		token, user, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || token == "" || user == "" {
			continue
		}
		out[token] = user
	}
	return out
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

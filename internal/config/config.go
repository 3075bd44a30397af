// Package config reads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Storage backends for session records
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Voice transcription backends
const (
	VoiceOff     = "off"
	VoiceWhisper = "whisper"
	VoiceOpenAI  = "openai"
)

// Config holds application configuration
type Config struct {
	Storage          string
	DataDir          string
	DBPath           string
	CatalogPath      string
	DefaultUser      string
	MaxConversations int
	HTTPAddr         string
	AllowedOrigins   []string
	LogLevel         string

	TelegramToken  string
	AllowedUserIDs []int64
	DiscordToken   string
	DiscordGuildID string

	Search SearchConfig
	Voice  VoiceConfig
}

// VoiceConfig selects how Telegram voice notes are transcribed
type VoiceConfig struct {
	Provider     string
	WhisperPath  string
	WhisperModel string
}

// SearchConfig configures the optional semantic search
type SearchConfig struct {
	SupabaseURL string
	SupabaseKey string
	OpenAIKey   string
	Threshold   float64
	CacheSize   int
}

// RemoteEnabled reports whether all remote search credentials are present
func (s SearchConfig) RemoteEnabled() bool {
	return s.SupabaseURL != "" && s.SupabaseKey != "" && s.OpenAIKey != ""
}

// LoadDotEnv loads a .env file from the working directory if one exists.
// Variables already set in the environment win.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	dataDir := getEnv("THINKING_DATA_DIR", defaultDataDir())

	cfg := &Config{
		Storage:          strings.ToLower(getEnv("THINKING_STORAGE", StorageFile)),
		DataDir:          dataDir,
		DBPath:           getEnv("THINKING_DB_PATH", filepath.Join(dataDir, "sessions.db")),
		CatalogPath:      os.Getenv("THINKING_CATALOG_PATH"),
		DefaultUser:      getEnv("THINKING_DEFAULT_USER", defaultUser()),
		MaxConversations: getEnvInt("THINKING_MAX_CONVERSATIONS", 1000),
		HTTPAddr:         getEnv("THINKING_HTTP_ADDR", ":8080"),
		LogLevel:         getEnv("THINKING_LOG_LEVEL", "info"),

		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		AllowedUserIDs: []int64{},
		DiscordToken:   os.Getenv("DISCORD_BOT_TOKEN"),
		DiscordGuildID: os.Getenv("DISCORD_GUILD_ID"),

		Search: SearchConfig{
			SupabaseURL: os.Getenv("SUPABASE_URL"),
			SupabaseKey: os.Getenv("SUPABASE_KEY"),
			OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
			Threshold:   getEnvFloat("THINKING_SEARCH_THRESHOLD", 0.5),
			CacheSize:   getEnvInt("THINKING_SEARCH_CACHE", 256),
		},
		Voice: VoiceConfig{
			WhisperPath:  os.Getenv("WHISPER_PATH"),
			WhisperModel: os.Getenv("WHISPER_MODEL_PATH"),
		},
	}

	// Local whisper is used when both paths are given, unless overridden
	voice := VoiceOff
	if cfg.Voice.WhisperPath != "" && cfg.Voice.WhisperModel != "" {
		voice = VoiceWhisper
	}
	cfg.Voice.Provider = strings.ToLower(getEnv("THINKING_VOICE", voice))

	for _, origin := range strings.Split(os.Getenv("THINKING_HTTP_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	// Parse allowed user IDs (comma-separated)
	if userIDs := os.Getenv("ALLOWED_USER_IDS"); userIDs != "" {
		for _, idStr := range strings.Split(userIDs, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q: %w", idStr, err)
			}
			cfg.AllowedUserIDs = append(cfg.AllowedUserIDs, id)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks field values that Load cannot default away
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageFile, StorageSQLite, StorageMemory:
	default:
		return fmt.Errorf("THINKING_STORAGE must be file, sqlite or memory, got %q", c.Storage)
	}
	if c.Storage == StorageFile && c.DataDir == "" {
		return errors.New("THINKING_DATA_DIR cannot be empty")
	}
	if c.Storage == StorageSQLite && c.DBPath == "" {
		return errors.New("THINKING_DB_PATH cannot be empty")
	}
	if c.MaxConversations <= 0 {
		return errors.New("THINKING_MAX_CONVERSATIONS must be > 0")
	}
	if c.Search.Threshold < 0 || c.Search.Threshold > 1 {
		return fmt.Errorf("THINKING_SEARCH_THRESHOLD must be within [0,1], got %g", c.Search.Threshold)
	}
	switch c.Voice.Provider {
	case VoiceOff, "":
	case VoiceWhisper:
		if c.Voice.WhisperPath == "" || c.Voice.WhisperModel == "" {
			return errors.New("THINKING_VOICE=whisper needs WHISPER_PATH and WHISPER_MODEL_PATH")
		}
	case VoiceOpenAI:
		if c.Search.OpenAIKey == "" {
			return errors.New("THINKING_VOICE=openai needs OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("THINKING_VOICE must be off, whisper or openai, got %q", c.Voice.Provider)
	}
	return nil
}

// SessionDir is where the file store keeps session records
func (c *Config) SessionDir() string {
	return filepath.Join(c.DataDir, "sessions")
}

// TmpDir holds scratch files such as converted voice notes
func (c *Config) TmpDir() string {
	return filepath.Join(c.DataDir, "tmp")
}

// RequireTelegram reports a descriptive error when the bot token is missing
func (c *Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".thinking-tools"
	}
	return filepath.Join(home, ".thinking-tools")
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
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

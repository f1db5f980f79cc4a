// ABOUTME: Configuration management for the remix studio client
// ABOUTME: Handles loading/saving TOML config files with fallback to defaults and env overrides

// Package config loads, saves and hot-reloads the client configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const configFileName = "remix-studio.toml"

// Config holds all client settings
type Config struct {
	// Backend connection
	BackendURL     string `toml:"backend_url"`
	RequestTimeout int    `toml:"request_timeout_s"` // 0 keeps transport defaults

	// Search
	SearchDebounceMs int `toml:"search_debounce_ms"`
	MaxResults       int `toml:"max_results"`

	// Choices offered in the UI
	Genres      []string `toml:"genres"`
	VoiceStyles []string `toml:"voice_styles"`

	// Upload mixing
	DefaultWeight float64 `toml:"default_weight"`
	WeightStep    float64 `toml:"weight_step"`

	// Local paths
	DownloadDir string `toml:"download_dir"`
	DropDir     string `toml:"drop_dir"` // empty disables the drop folder

	// Logging
	LogPath  string `toml:"log_path"`
	LogLevel string `toml:"log_level"`
}

// SearchDebounce returns the search quiescence window
func (c Config) SearchDebounce() time.Duration {
	return time.Duration(c.SearchDebounceMs) * time.Millisecond
}

// Timeout returns the HTTP client timeout (zero means no custom timeout)
func (c Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BackendURL:       "http://127.0.0.1:8000",
		SearchDebounceMs: 500,
		MaxResults:       5,
		Genres:           []string{"rock", "electro", "jazz", "hip-hop", "lo-fi", "pop"},
		VoiceStyles:      []string{"male_1", "male_2", "female_1", "female_2", "gtts"},
		DefaultWeight:    0.5,
		WeightStep:       0.05,
		DownloadDir:      ".",
		LogPath:          "remix-studio.log",
		LogLevel:         "info",
	}
}

// GetConfigPath returns the default config file path
// First tries current directory, then falls back to ~/.config/remix-studio/config.toml
func GetConfigPath() string {
	if _, err := os.Stat("./" + configFileName); err == nil {
		return "./" + configFileName
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./" + configFileName
	}

	return filepath.Join(home, ".config", "remix-studio", "config.toml")
}

// LoadConfig loads configuration from a TOML file
// If the file doesn't exist, returns default config. Fields missing from the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}

		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	return normalize(cfg), nil
}

// SaveConfig saves configuration to a TOML file
func SaveConfig(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	defer func() {
		if err := f.Close(); err != nil {
			fmt.Printf("Warning: failed to close config file: %v\n", err)
		}
	}()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ApplyEnv overlays environment overrides onto cfg.
// An optional .env file at envFile is loaded first; variables already set in the
// process environment win over the file.
func ApplyEnv(cfg Config, envFile string) Config {
	if envFile != "" {
		_ = godotenv.Load(envFile) // missing .env is the common case
	}

	cfg.BackendURL = envStr("REMIX_STUDIO_BACKEND_URL", cfg.BackendURL)
	cfg.DropDir = envStr("REMIX_STUDIO_DROP_DIR", cfg.DropDir)
	cfg.LogLevel = envStr("REMIX_STUDIO_LOG_LEVEL", cfg.LogLevel)
	cfg.DownloadDir = envStr("REMIX_STUDIO_DOWNLOAD_DIR", cfg.DownloadDir)

	return normalize(cfg)
}

func envStr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}

	return fallback
}

// normalize repairs out-of-range values so callers never see a zero window or step
func normalize(cfg Config) Config {
	defaults := DefaultConfig()

	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	if cfg.BackendURL == "" {
		cfg.BackendURL = defaults.BackendURL
	}

	if cfg.SearchDebounceMs <= 0 {
		cfg.SearchDebounceMs = defaults.SearchDebounceMs
	}

	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaults.MaxResults
	}

	if len(cfg.Genres) == 0 {
		cfg.Genres = defaults.Genres
	}

	if len(cfg.VoiceStyles) == 0 {
		cfg.VoiceStyles = defaults.VoiceStyles
	}

	if cfg.DefaultWeight < 0 || cfg.DefaultWeight > 1 {
		cfg.DefaultWeight = defaults.DefaultWeight
	}

	if cfg.WeightStep <= 0 || cfg.WeightStep > 1 {
		cfg.WeightStep = defaults.WeightStep
	}

	if cfg.RequestTimeout < 0 {
		cfg.RequestTimeout = 0
	}

	return cfg
}

// SharedConfig provides thread-safe access to the current configuration
type SharedConfig struct {
	mu  sync.RWMutex
	cfg Config
}

// NewSharedConfig wraps cfg for concurrent readers
func NewSharedConfig(cfg Config) *SharedConfig {
	return &SharedConfig{cfg: cfg}
}

// Get returns a copy of the current configuration
func (s *SharedConfig) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cfg
}

// Update replaces the current configuration
func (s *SharedConfig) Update(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/melocuore/internal/api"
	"github.com/five82/melocuore/internal/recognize"
)

// Config holds the client settings.
type Config struct {
	APIURL            string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	SessionPath       string
	LogPath           string
	LogLevel          slog.Level
	Recognition       recognize.Config
}

const (
	defaultConfigPath        = "~/.config/melocuore/config.toml"
	defaultAPIURL            = "http://localhost:8000"
	defaultRequestTimeout    = 10 * time.Second
	defaultRequestsPerSecond = 5
	defaultSessionPath       = "~/.local/share/melocuore/session.toml"
	defaultLogPath           = "~/.local/share/melocuore/melocuore.log"

	// EnvAPIURL overrides api_url from the process environment or a .env file.
	EnvAPIURL = "MELOCUORE_API_URL"
)

// DotenvPath is the .env file consulted for EnvAPIURL.
var DotenvPath = ".env"

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{
		APIURL:            defaultAPIURL,
		RequestTimeout:    defaultRequestTimeout,
		RequestsPerSecond: defaultRequestsPerSecond,
		SessionPath:       expandOrKeep(defaultSessionPath),
		LogPath:           expandOrKeep(defaultLogPath),
		LogLevel:          slog.LevelInfo,
		Recognition:       recognize.DefaultConfig(),
	}
}

// Load reads the config file, falling back to defaults when it is missing,
// then applies the MELOCUORE_API_URL override.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL            string   `toml:"api_url"`
		RequestTimeout    string   `toml:"request_timeout"`
		RequestsPerSecond *float64 `toml:"requests_per_second"`
		SessionPath       string   `toml:"session_path"`
		LogPath           string   `toml:"log_path"`
		LogLevel          string   `toml:"log_level"`
		Recognition       struct {
			RetryCeiling    *int   `toml:"retry_ceiling"`
			RetryDelay      string `toml:"retry_delay"`
			PreviewEndpoint string `toml:"preview_endpoint"`
			PollEndpoint    string `toml:"poll_endpoint"`
		} `toml:"recognition"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(raw.RequestTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("parse config: request_timeout %q is not a positive duration", v)
		}
		cfg.RequestTimeout = d
	}
	if raw.RequestsPerSecond != nil {
		if *raw.RequestsPerSecond < 0 {
			return Config{}, fmt.Errorf("parse config: requests_per_second must not be negative")
		}
		cfg.RequestsPerSecond = *raw.RequestsPerSecond
	}
	if v := strings.TrimSpace(raw.SessionPath); v != "" {
		cfg.SessionPath = expandOrKeep(v)
	}
	if v := strings.TrimSpace(raw.LogPath); v != "" {
		cfg.LogPath = expandOrKeep(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("parse config: log_level: %w", err)
		}
	}

	rec := raw.Recognition
	if rec.RetryCeiling != nil {
		if *rec.RetryCeiling < 0 {
			return Config{}, fmt.Errorf("parse config: recognition.retry_ceiling must not be negative")
		}
		cfg.Recognition.RetryCeiling = *rec.RetryCeiling
	}
	if v := strings.TrimSpace(rec.RetryDelay); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("parse config: recognition.retry_delay %q is not a positive duration", v)
		}
		cfg.Recognition.RetryDelay = d
	}
	if v := strings.TrimSpace(rec.PreviewEndpoint); v != "" {
		cfg.Recognition.PreviewEndpoint = v
	}
	if v := strings.TrimSpace(rec.PollEndpoint); v != "" {
		cfg.Recognition.PollEndpoint = v
	}

	applyEnv(&cfg)
	return cfg, nil
}

// ClientOptions returns the API client settings.
func (c Config) ClientOptions(logger *slog.Logger) api.Options {
	return api.Options{
		BaseURL:           c.APIURL,
		Timeout:           c.RequestTimeout,
		RequestsPerSecond: c.RequestsPerSecond,
		Logger:            logger,
	}
}

// applyEnv lets the process environment, then the .env file, override the
// API URL. Process variables win over .env entries.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.APIURL = v
		return
	}
	values, err := godotenv.Read(DotenvPath)
	if err != nil {
		return
	}
	if v := strings.TrimSpace(values[EnvAPIURL]); v != "" {
		cfg.APIURL = v
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

// expandOrKeep expands path, returning it unchanged when expansion fails.
func expandOrKeep(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves "~" and relative paths to an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

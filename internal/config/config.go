package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// Scheduler contains timing and concurrency settings for the transition
// driver.
type Scheduler struct {
	// PollInterval is seconds between scheduler cycles.
	PollInterval int `toml:"poll_interval"`
	// ErrorRetryInterval is seconds to back off after a cycle-level failure.
	ErrorRetryInterval int `toml:"error_retry_interval"`
	// MaxConcurrent bounds parallel competition transitions per cycle.
	MaxConcurrent int `toml:"max_concurrent"`
	// MaxJobFailures is the failed-attempt threshold before an alert
	// notification fires for a stuck competition.
	MaxJobFailures int `toml:"max_job_failures"`
	// ArchiveAfterDays is how long a completed competition rests before the
	// scheduler archives it.
	ArchiveAfterDays int `toml:"archive_after_days"`
}

// Voting contains round and scoring parameters.
type Voting struct {
	// VotersPerSubmission is k: distinct round-1 reviewers per submission.
	VotersPerSubmission int `toml:"voters_per_submission"`
	// GroupSize caps cohort size for the round-1 plan; zero disables
	// grouping.
	GroupSize int `toml:"group_size"`
	// FinalistCutoff is the round-1 top-N advanced to round 2 (ties at the
	// boundary are always included).
	FinalistCutoff int `toml:"finalist_cutoff"`
	// MinScore and MaxScore bound an individual vote.
	MinScore int `toml:"min_score"`
	MaxScore int `toml:"max_score"`
}

// Media contains settings for the signed track URL service.
type Media struct {
	BaseURL       string `toml:"base_url"`
	SigningSecret string `toml:"signing_secret"`
	URLTTLSeconds int    `toml:"url_ttl_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Rounds         bool   `toml:"rounds"`
	Results        bool   `toml:"results"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for encore.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Scheduler: cycle cadence, concurrency ceiling, failure thresholds
//   - Voting: round-1 assignment and finalist parameters
//   - Media: signed track URL generation
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Scheduler     Scheduler     `toml:"scheduler"`
	Voting        Voting        `toml:"voting"`
	Media         Media         `toml:"media"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/encore/config.toml")
}

// SampleConfig returns the embedded annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. A .env file alongside
// the config overlays secret values before validation.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(filepath.Dir(resolvedPath)); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// applyEnvOverrides loads a .env file next to the config (when present) and
// then applies ENCORE_* environment variables over the parsed values.
func (c *Config) applyEnvOverrides(configDir string) error {
	envPath := filepath.Join(configDir, ".env")
	if info, err := os.Stat(envPath); err == nil && !info.IsDir() {
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("load env overlay %s: %w", envPath, err)
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENCORE_MEDIA_SIGNING_SECRET")); v != "" {
		c.Media.SigningSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("ENCORE_NTFY_TOPIC")); v != "" {
		c.Notifications.NtfyTopic = v
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("encore.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location under the data
// directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "encore.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

package testsupport

import (
	"path/filepath"
	"testing"

	"encore/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Scheduler.PollInterval = 1
	cfg.Scheduler.ErrorRetryInterval = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithVoting overrides the round-1 planning parameters on the test config.
func WithVoting(votersPerSubmission, groupSize, finalistCutoff int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Voting.VotersPerSubmission = votersPerSubmission
		cfg.Voting.GroupSize = groupSize
		cfg.Voting.FinalistCutoff = finalistCutoff
	}
}

// WithNtfyTopic points notifications at the given endpoint.
func WithNtfyTopic(topic string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Notifications.NtfyTopic = topic
	}
}

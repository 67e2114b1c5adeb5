package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScheduler()
	c.normalizeVoting()
	c.normalizeMedia()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeScheduler() {
	if c.Scheduler.PollInterval <= 0 {
		c.Scheduler.PollInterval = defaultPollInterval
	}
	if c.Scheduler.ErrorRetryInterval <= 0 {
		c.Scheduler.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Scheduler.MaxConcurrent <= 0 {
		c.Scheduler.MaxConcurrent = defaultMaxConcurrent
	}
	if c.Scheduler.MaxJobFailures <= 0 {
		c.Scheduler.MaxJobFailures = defaultMaxJobFailures
	}
	if c.Scheduler.ArchiveAfterDays <= 0 {
		c.Scheduler.ArchiveAfterDays = defaultArchiveAfterDays
	}
}

func (c *Config) normalizeVoting() {
	if c.Voting.VotersPerSubmission <= 0 {
		c.Voting.VotersPerSubmission = defaultVotersPerSubmission
	}
	if c.Voting.GroupSize < 0 {
		c.Voting.GroupSize = defaultGroupSize
	}
	if c.Voting.FinalistCutoff <= 0 {
		c.Voting.FinalistCutoff = defaultFinalistCutoff
	}
	if c.Voting.MaxScore <= c.Voting.MinScore {
		c.Voting.MinScore = defaultMinScore
		c.Voting.MaxScore = defaultMaxScore
	}
}

func (c *Config) normalizeMedia() {
	c.Media.BaseURL = strings.TrimRight(strings.TrimSpace(c.Media.BaseURL), "/")
	c.Media.SigningSecret = strings.TrimSpace(c.Media.SigningSecret)
	if c.Media.URLTTLSeconds <= 0 {
		c.Media.URLTTLSeconds = defaultMediaURLTTLSeconds
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

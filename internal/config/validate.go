package config

import (
	"errors"
	"fmt"
	"strings"
)

// schedulerConcurrencyCeiling is the hard upper bound on parallel
// competition transitions; individual transitions are cheap and the store is
// the real bottleneck.
const schedulerConcurrencyCeiling = 10

// Validate checks configuration invariants after normalization.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must not be empty")
	}

	if c.Scheduler.MaxConcurrent > schedulerConcurrencyCeiling {
		problems = append(problems, fmt.Sprintf("scheduler.max_concurrent must be at most %d", schedulerConcurrencyCeiling))
	}

	if c.Voting.VotersPerSubmission > 25 {
		problems = append(problems, "voting.voters_per_submission is unreasonably large (max 25)")
	}
	if c.Voting.GroupSize != 0 && c.Voting.GroupSize <= c.Voting.VotersPerSubmission {
		problems = append(problems, "voting.group_size must exceed voting.voters_per_submission")
	}
	if c.Voting.MinScore >= c.Voting.MaxScore {
		problems = append(problems, "voting.min_score must be below voting.max_score")
	}

	if c.Media.BaseURL != "" && c.Media.SigningSecret == "" {
		problems = append(problems, "media.signing_secret is required when media.base_url is set")
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format: unsupported value %q", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

package config

const (
	defaultDataDir = "~/.local/share/encore/data"
	defaultLogDir  = "~/.local/share/encore/logs"
	defaultAPIBind = "127.0.0.1:7512"

	defaultPollInterval       = 120
	defaultErrorRetryInterval = 30
	defaultMaxConcurrent      = 4
	defaultMaxJobFailures     = 5
	defaultArchiveAfterDays   = 30

	defaultVotersPerSubmission = 3
	defaultGroupSize           = 0
	defaultFinalistCutoff      = 3
	defaultMinScore            = 0
	defaultMaxScore            = 100

	defaultMediaURLTTLSeconds = 900

	defaultNtfyRequestTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Scheduler: Scheduler{
			PollInterval:       defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			MaxConcurrent:      defaultMaxConcurrent,
			MaxJobFailures:     defaultMaxJobFailures,
			ArchiveAfterDays:   defaultArchiveAfterDays,
		},
		Voting: Voting{
			VotersPerSubmission: defaultVotersPerSubmission,
			GroupSize:           defaultGroupSize,
			FinalistCutoff:      defaultFinalistCutoff,
			MinScore:            defaultMinScore,
			MaxScore:            defaultMaxScore,
		},
		Media: Media{
			URLTTLSeconds: defaultMediaURLTTLSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
			Rounds:         true,
			Results:        true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

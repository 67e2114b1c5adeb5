package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"encore/internal/api"
	"encore/internal/config"
	"encore/internal/logging"
	"encore/internal/notifications"
	"encore/internal/scheduler"
	"encore/internal/store"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// withService opens the store, runs fn against the competition service, and
// closes the store afterwards. The daemon may hold the database concurrently;
// SQLite's WAL mode and busy retries make that safe.
func (c *commandContext) withService(fn func(*api.CompetitionService) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(api.NewCompetitionService(cfg, st))
}

// withScheduler runs fn against an unstarted scheduler manager for the
// administrative operations that share the scheduler's transition machinery.
func (c *commandContext) withScheduler(fn func(*scheduler.Manager, *api.CompetitionService) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	mgr := scheduler.NewManagerWithOptions(cfg, st, logging.NewNop(), notifications.NewService(cfg), nil)
	return fn(mgr, api.NewCompetitionService(cfg, st))
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

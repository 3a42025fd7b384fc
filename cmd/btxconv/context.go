package main

import (
	"io"
	"log/slog"
	"strings"
	"sync"

	"btxconv/internal/config"
	"btxconv/internal/infrastructure/btx"
	"btxconv/internal/telemetry"
)

type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce sync.Once
	config     config.Config
	configErr  error
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

// logger writes to out, which is stderr for every command but serve, so
// command output on stdout stays clean.
func (c *commandContext) logger(out io.Writer) *slog.Logger {
	cfg, _ := c.ensureConfig()
	level := cfg.Logging.Level
	if c.verboseFlag != nil && *c.verboseFlag {
		level = "debug"
	}
	return telemetry.NewLogger(out, level, cfg.Logging.Format)
}

func (c *commandContext) framer() (*btx.Framer, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	magic, err := cfg.Magic()
	if err != nil {
		return nil, err
	}
	return btx.NewFramer(magic)
}

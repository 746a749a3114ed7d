package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Nomadcxx/jellyname/internal/config"
	"github.com/Nomadcxx/jellyname/internal/detector"
	"github.com/Nomadcxx/jellyname/internal/logging"
	"github.com/Nomadcxx/jellyname/internal/organizer"
	"github.com/Nomadcxx/jellyname/internal/session"
)

type commandContext struct {
	configFlag  *string
	sessionFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	logger *zap.Logger
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(*c.configFlag)
		if path == "" {
			path, c.configErr = config.ConfigPath()
			if c.configErr != nil {
				return
			}
		}
		c.configPath = path

		cfg, err := config.LoadFrom(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = fmt.Errorf("invalid config %s: %w", path, err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*zap.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	c.logger = logger
	return logger, nil
}

func (c *commandContext) detector() (*detector.Detector, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return cfg.Detector()
}

func (c *commandContext) organizer() (*organizer.Organizer, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	det, err := cfg.Detector()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return organizer.New(det, cfg.Media, organizer.WithLogger(logging.Component(logger, "cli"))), nil
}

// sessionStore opens the session store kept next to the config file
func (c *commandContext) sessionStore() (*session.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(filepath.Dir(c.configPath), "sessions.toml")
	return session.Open(path, session.Settings{
		Template: cfg.Rename.Template,
		Channel:  cfg.Rename.Channel,
	})
}

// settings resolves the naming settings for cmd: the --session slot when
// given, otherwise the config defaults, then the command's own flags.
func (c *commandContext) settings(cmd *cobra.Command) (session.Settings, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return session.Settings{}, err
	}

	settings := session.Settings{
		Template: cfg.Rename.Template,
		Channel:  cfg.Rename.Channel,
	}
	if id := strings.TrimSpace(*c.sessionFlag); id != "" {
		store, err := c.sessionStore()
		if err != nil {
			return session.Settings{}, err
		}
		settings, err = store.Lookup(id)
		if err != nil {
			return session.Settings{}, err
		}
	}

	if cmd.Flags().Changed("template") {
		tmpl, _ := cmd.Flags().GetString("template")
		if strings.TrimSpace(tmpl) == "" {
			return session.Settings{}, fmt.Errorf("template must not be empty")
		}
		settings.Template = tmpl
	}
	if cmd.Flags().Changed("channel") {
		settings.Channel, _ = cmd.Flags().GetString("channel")
	}
	return settings, nil
}

func (c *commandContext) syncLogger() {
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

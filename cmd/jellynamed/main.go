package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Nomadcxx/jellyname/internal/config"
	"github.com/Nomadcxx/jellyname/internal/daemon"
	"github.com/Nomadcxx/jellyname/internal/logging"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		once       bool
	)

	cmd := &cobra.Command{
		Use:   "jellynamed",
		Short: "Sweep an inbox of episode archives into a renamed library",
		Long: `jellynamed watches the configured inbox. Zip archives are extracted and
their media renamed into the output directory, loose media files are
renamed into it directly. SIGHUP reloads the configuration.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				path, err := config.ConfigPath()
				if err != nil {
					return err
				}
				configPath = path
			}
			if once {
				return sweepOnce(cmd.Context(), configPath)
			}
			return serve(configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Configuration file path")
	cmd.Flags().BoolVar(&once, "once", false, "Sweep the inbox once and exit")
	return cmd
}

func load(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func sweepOnce(ctx context.Context, path string) error {
	cfg, logger, err := load(path)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	d, err := daemon.New(cfg, logger)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := d.Sweep(ctx)
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d archive(s) failed, see %s", result.Failed, result.Report)
	}
	return nil
}

// serve runs the daemon until SIGINT or SIGTERM. SIGHUP stops the running
// daemon, reloads the configuration and starts it again; an invalid new
// configuration keeps the old one running.
func serve(path string) error {
	cfg, logger, err := load(path)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("jellynamed starting", zap.String("version", version), zap.String("config", path))

	d, err := daemon.New(cfg, logger)
	if err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- d.Run(ctx) }()

		var reload bool
		for !reload {
			select {
			case err := <-done:
				cancel()
				return err

			case sig := <-sigChan:
				if sig != syscall.SIGHUP {
					logger.Info("received shutdown signal, exiting", zap.String("signal", sig.String()))
					cancel()
					return <-done
				}

				logger.Info("received SIGHUP, reloading configuration")
				newCfg, newLogger, err := load(path)
				if err != nil {
					logger.Error("failed to reload config", zap.Error(err))
					continue
				}
				next, err := daemon.New(newCfg, newLogger)
				if err != nil {
					logger.Error("new configuration rejected", zap.Error(err))
					continue
				}

				cancel()
				if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
					logger.Warn("daemon stopped with error", zap.Error(err))
				}
				_ = logger.Sync()
				d, logger = next, newLogger
				logger.Info("configuration reloaded")
				reload = true
			}
		}
	}
}

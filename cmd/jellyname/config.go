package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/Nomadcxx/jellyname/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := ctx.ensureConfig(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ctx.configPath)
				return nil
			},
		},
		&cobra.Command{
			Use:   "add-pattern <episode|quality|audio> <regex>",
			Short: "Append a detection pattern; earlier patterns win",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return updateConfig(ctx, func(cfg *config.Config) error {
					return cfg.AddPattern(args[0], args[1])
				})
			},
		},
		&cobra.Command{
			Use:   "remove-pattern <episode|quality|audio> <regex>",
			Short: "Remove a detection pattern",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return updateConfig(ctx, func(cfg *config.Config) error {
					return cfg.RemovePattern(args[0], args[1])
				})
			},
		},
	)

	return cmd
}

func updateConfig(ctx *commandContext, fn func(*config.Config) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if err := fn(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return config.SaveTo(ctx.configPath, cfg)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:   "jellyname",
		Short: "Episode filename detection and renaming for media libraries",
		Long: `jellyname detects show, season and episode numbers in media filenames
and renames them from a template such as "{ShowName} - S{Season}E{Episode}".
It also extracts zip archives of episodes and renames their contents.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	ctx.configFlag = rootCmd.PersistentFlags().String("config", "", "Configuration file path")
	ctx.sessionFlag = rootCmd.PersistentFlags().String("session", "", "Session whose template and channel are used")

	rootCmd.AddCommand(
		newDetectCommand(ctx),
		newPreviewCommand(ctx),
		newRenameCommand(ctx),
		newReviewCommand(ctx),
		newProcessCommand(ctx),
		newUndoCommand(ctx),
		newSessionCommand(ctx),
		newConfigCommand(ctx),
		newVersionCommand(),
	)

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "jellyname %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", buildTime)
			return nil
		},
	}
}

// addNamingFlags registers the per-invocation template and channel overrides
func addNamingFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("template", "t", "", "Filename template, e.g. \"{ShowName} - {Episode}\"")
	cmd.Flags().StringP("channel", "c", "", "Value substituted for {Channel}")
}

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/jellyname/internal/organizer"
	"github.com/Nomadcxx/jellyname/internal/reporter"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var (
		outDir   string
		noRename bool
	)

	cmd := &cobra.Command{
		Use:   "process <archive.zip>",
		Short: "Extract a zip archive of episodes and rename its media files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.syncLogger()

			if outDir == "" {
				return errors.New("--out is required")
			}
			settings, err := ctx.settings(cmd)
			if err != nil {
				return err
			}
			org, err := ctx.organizer()
			if err != nil {
				return err
			}

			result, err := org.ProcessArchive(cmd.Context(), args[0], outDir, settings, !noRename)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(result.Files) > 0 {
				fmt.Fprintln(out, reporter.ResultTable(result))
			}
			fmt.Fprint(out, reporter.Summary(result))

			reportPath, err := reporter.Generate("", reporter.Report{
				Kind:    reporter.KindProcess,
				Source:  result.Archive,
				Results: []organizer.ProcessingResult{*result},
				Errors:  result.Errors,
			})
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to write report: %v\n", err)
			} else {
				fmt.Fprintf(out, "Report: %s\n", reportPath)
			}

			if !result.Success {
				return fmt.Errorf("failed to process %s", args[0])
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory the archive is extracted into")
	cmd.Flags().BoolVar(&noRename, "no-rename", false, "Extract without renaming")
	addNamingFlags(cmd)
	return cmd
}

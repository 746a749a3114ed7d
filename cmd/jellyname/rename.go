package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/jellyname/internal/organizer"
	"github.com/Nomadcxx/jellyname/internal/reporter"
)

func newRenameCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "rename <directory>",
		Short: "Rename the media files of a directory in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.syncLogger()
			dir := args[0]

			if err := organizer.ValidateDir(dir, "rename", !dryRun); err != nil {
				return err
			}
			settings, err := ctx.settings(cmd)
			if err != nil {
				return err
			}
			org, err := ctx.organizer()
			if err != nil {
				return err
			}

			ops, err := org.Plan(dir, settings)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ops) == 0 {
				fmt.Fprintln(out, "No media files found")
				return nil
			}
			fmt.Fprintln(out, reporter.OperationsTable(ops))

			return applyOperations(cmd, org, ops, dir, dryRun)
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would be renamed without changing anything")
	addNamingFlags(cmd)
	return cmd
}

// applyOperations applies ops, prints the outcome and records a report
func applyOperations(cmd *cobra.Command, org *organizer.Organizer, ops []organizer.Operation, source string, dryRun bool) error {
	out := cmd.OutOrStdout()

	journal, applyErr := org.Apply(cmd.Context(), ops, dryRun)
	if journal == nil {
		return applyErr
	}

	if dryRun {
		fmt.Fprintf(out, "Dry run: %d file(s) would be renamed\n", countChanges(ops))
		return applyErr
	}

	fmt.Fprintln(out, reporter.JournalTable(journal))
	fmt.Fprintf(out, "Renamed %d file(s), %d failed\n", journal.Succeeded(), journal.Failed())
	if path := journal.Path(); path != "" {
		fmt.Fprintf(out, "Journal: %s\n", path)
		fmt.Fprintf(out, "Undo with: jellyname undo %s\n", path)
	}

	reportPath, err := reporter.Generate("", reporter.Report{
		Kind:    reporter.KindRename,
		Source:  source,
		Journal: journal,
	})
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to write report: %v\n", err)
	} else {
		fmt.Fprintf(out, "Report: %s\n", reportPath)
	}

	if applyErr != nil {
		return applyErr
	}
	if journal.Failed() > 0 {
		return fmt.Errorf("%d rename(s) failed", journal.Failed())
	}
	return nil
}

func countChanges(ops []organizer.Operation) int {
	n := 0
	for _, op := range ops {
		if !op.Noop() {
			n++
		}
	}
	return n
}

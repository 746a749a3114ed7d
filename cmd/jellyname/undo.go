package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/jellyname/internal/organizer"
	"github.com/Nomadcxx/jellyname/internal/ui"
)

func newUndoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "undo [journal]",
		Short: "Revert a previous rename from its journal",
		Long: `Undo reverts the renames recorded in a journal file. Without an
argument the saved journals are listed for selection.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.syncLogger()
			out := cmd.OutOrStdout()

			org, err := ctx.organizer()
			if err != nil {
				return err
			}

			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				dir, err := organizer.DefaultJournalDir()
				if err != nil {
					return err
				}
				journals, err := organizer.ListJournals(dir)
				if err != nil {
					return err
				}
				selected, err := ui.PickJournal(journals)
				if err != nil {
					return err
				}
				if selected == nil {
					fmt.Fprintln(out, "Nothing selected")
					return nil
				}
				path = selected.Path()
			}

			result, err := org.Undo(path)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Reverted %d file(s)\n", result.Reverted)
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  - %s\n", e)
			}
			if result.Failed > 0 {
				return fmt.Errorf("%d revert(s) failed", result.Failed)
			}
			return nil
		},
	}
}

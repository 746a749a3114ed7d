package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/jellyname/internal/organizer"
	"github.com/Nomadcxx/jellyname/internal/reporter"
	"github.com/Nomadcxx/jellyname/internal/ui"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review <directory>",
		Short: "Review and tweak the renames of a directory interactively",
		Long: `Review opens the planned renames in a terminal view. The template and
channel can be edited with a live preview; enter applies the renames.
With --session the edited values are saved to that session.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.syncLogger()
			dir := args[0]

			if err := organizer.ValidateDir(dir, "rename", true); err != nil {
				return err
			}
			settings, err := ctx.settings(cmd)
			if err != nil {
				return err
			}
			det, err := ctx.detector()
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
			var names []string
			for _, op := range ops {
				if op.Kind.Renamable() {
					names = append(names, filepath.Base(op.Source))
				}
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No media files found")
				return nil
			}

			model, err := ui.Run(det, names, settings)
			if err != nil {
				return err
			}
			edited := model.Settings()

			if id := strings.TrimSpace(*ctx.sessionFlag); id != "" && (edited.Template != settings.Template || edited.Channel != settings.Channel) {
				store, err := ctx.sessionStore()
				if err != nil {
					return err
				}
				store.SetTemplate(id, edited.Template)
				store.SetChannel(id, edited.Channel)
				if err := store.Save(); err != nil {
					return err
				}
			}

			if !model.ShouldApply() {
				fmt.Fprintln(cmd.OutOrStdout(), "Review cancelled, nothing renamed")
				return nil
			}

			ops, err = org.Plan(dir, edited)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reporter.OperationsTable(ops))
			return applyOperations(cmd, org, ops, dir, false)
		},
	}

	addNamingFlags(cmd)
	return cmd
}

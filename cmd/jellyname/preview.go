package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/jellyname/internal/archive"
	"github.com/Nomadcxx/jellyname/internal/naming"
	"github.com/Nomadcxx/jellyname/internal/organizer"
	"github.com/Nomadcxx/jellyname/internal/reporter"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var (
		zipPath string
		dir     string
	)

	cmd := &cobra.Command{
		Use:   "preview [filename...]",
		Short: "Show the new names without renaming anything",
		Long: `Preview renders the new name of every given filename. With --zip the
entries of an archive are previewed, with --dir the files of a directory
are planned exactly as rename would, collisions included.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := 0
			for _, set := range []bool{len(args) > 0, zipPath != "", dir != ""} {
				if set {
					sources++
				}
			}
			if sources != 1 {
				return errors.New("give filenames, --zip or --dir")
			}

			settings, err := ctx.settings(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch {
			case dir != "":
				if err := organizer.ValidateDir(dir, "preview", false); err != nil {
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
				if len(ops) == 0 {
					fmt.Fprintln(out, "No media files found")
					return nil
				}
				fmt.Fprintln(out, reporter.OperationsTable(ops))
				return nil

			case zipPath != "":
				if !archive.IsZip(zipPath) {
					return fmt.Errorf("%s: %w", zipPath, archive.ErrNotZip)
				}
				org, err := ctx.organizer()
				if err != nil {
					return err
				}
				previews, err := org.PreviewArchive(zipPath, settings)
				if err != nil {
					return err
				}
				if len(previews) == 0 {
					fmt.Fprintln(out, "No media files found")
					return nil
				}
				fmt.Fprintln(out, reporter.PreviewTable(previews))
				return nil
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			det, err := cfg.Detector()
			if err != nil {
				return err
			}
			previews, err := naming.PreviewBatchParallel(cmd.Context(), det, args, settings.Template, settings.Channel, cfg.Rename.Workers)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, reporter.PreviewTable(previews))
			return nil
		},
	}

	cmd.Flags().StringVar(&zipPath, "zip", "", "Preview the media entries of a zip archive")
	cmd.Flags().StringVar(&dir, "dir", "", "Preview the renames planned for a directory")
	addNamingFlags(cmd)
	return cmd
}

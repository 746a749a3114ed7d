package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/jellyname/internal/detector"
	"github.com/Nomadcxx/jellyname/internal/reporter"
)

func newDetectCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "detect <filename>...",
		Short: "Show the season, episode and tokens detected in filenames",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			det, err := ctx.detector()
			if err != nil {
				return err
			}

			infos := make([]detector.EpisodeInfo, 0, len(args))
			for _, arg := range args {
				infos = append(infos, det.Detect(filepath.Base(arg)))
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}
			fmt.Fprintln(cmd.OutOrStdout(), reporter.DetectionTable(infos))
			for _, info := range infos {
				if !info.Detected() {
					fmt.Fprintf(cmd.OutOrStdout(), "No episode number in %s, episode 01 will be used\n", info.OriginalFilename)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Nomadcxx/jellyname/internal/session"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage per-session naming settings",
		Long: `Sessions keep their own template and channel, so several users or
libraries can share one configuration. Pass --session <id> to the
naming commands to use a session's settings.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "new",
			Short: "Create a session with the default settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSessions(ctx, true, func(store *session.Store) error {
					fmt.Fprintln(cmd.OutOrStdout(), store.Create())
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List sessions",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSessions(ctx, false, func(store *session.Store) error {
					entries := store.List()
					if len(entries) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "No sessions")
						return nil
					}

					tw := table.NewWriter()
					tw.SetStyle(table.StyleRounded)
					tw.AppendHeader(table.Row{"ID", "Template", "Channel", "Updated"})
					for _, e := range entries {
						s := store.Get(e.ID)
						tw.AppendRow(table.Row{e.ID, s.Template, s.Channel, humanize.Time(e.Settings.Updated)})
					}
					fmt.Fprintln(cmd.OutOrStdout(), tw.Render())
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show the settings of a session",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSessions(ctx, false, func(store *session.Store) error {
					s, err := store.Lookup(args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "template: %s\nchannel:  %s\n", s.Template, s.Channel)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "set-template <id> <template>",
			Short: "Set the template of a session",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSessions(ctx, true, func(store *session.Store) error {
					if _, err := store.Lookup(args[0]); err != nil {
						return err
					}
					store.SetTemplate(args[0], args[1])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "set-channel <id> <channel>",
			Short: "Set the channel of a session",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSessions(ctx, true, func(store *session.Store) error {
					if _, err := store.Lookup(args[0]); err != nil {
						return err
					}
					store.SetChannel(args[0], args[1])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a session",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSessions(ctx, true, func(store *session.Store) error {
					return store.Delete(args[0])
				})
			},
		},
	)

	return cmd
}

// withSessions opens the store, runs fn and saves the store when save is set
func withSessions(ctx *commandContext, save bool, fn func(*session.Store) error) error {
	store, err := ctx.sessionStore()
	if err != nil {
		return err
	}
	if err := fn(store); err != nil {
		return err
	}
	if save {
		return store.Save()
	}
	return nil
}

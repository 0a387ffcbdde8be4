package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/destiny-cli/internal/adapters/render/roster"
	"github.com/bnema/destiny-cli/internal/domain"
)

func newSessionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or reset the saved session",
	}

	cmd.AddCommand(newSessionShowCmd(app), newSessionResetCmd(app))

	return cmd
}

func newSessionShowCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the session saved by the last characters run, without calling Bungie",
		RunE: func(cmd *cobra.Command, _ []string) error {
			snapshot, err := app.sessions.Load(cmd.Context())
			if errors.Is(err, domain.ErrSessionNotFound) {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "No saved session. Run `dst characters` first.")
				return err
			}
			if err != nil {
				return fmt.Errorf("load session: %w", err)
			}
			return writeRoster(cmd, app, roster.FromSnapshot(snapshot), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the session as JSON")

	return cmd
}

func newSessionResetCmd(app *app) *cobra.Command {
	var hard bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget the saved session, and with --hard the stored Bungie credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.sessions.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear session: %w", err)
			}
			if hard {
				if err := app.tokens.Forget(cmd.Context()); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "Session and credentials removed")
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Session removed")
			return err
		},
	}

	cmd.Flags().BoolVar(&hard, "hard", false, "Also delete the stored OAuth grant")

	return cmd
}

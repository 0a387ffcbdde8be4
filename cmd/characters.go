package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/destiny-cli/internal/adapters/render/roster"
	"github.com/bnema/destiny-cli/internal/application"
	"github.com/bnema/destiny-cli/internal/domain"
)

const snapshotStaleAfter = 24 * time.Hour

func newCharactersCmd(app *app) *cobra.Command {
	var asJSON bool
	var noSave bool

	cmd := &cobra.Command{
		Use:     "characters",
		Aliases: []string{"status"},
		Short:   "Resolve your account and list characters by last played",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.newClient()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			if err := bootClient(cmd, client, asJSON); err != nil {
				return err
			}

			session := client.Session()
			characters := client.Characters.All()
			if !noSave {
				if err := saveSnapshot(cmd.Context(), app, session, characters); err != nil {
					return err
				}
			}

			return writeRoster(cmd, app, roster.FromSession(session, characters), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the roster as JSON")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not update the saved session")

	return cmd
}

// bootClient waits for the bootstrap, behind a spinner unless output is JSON.
func bootClient(cmd *cobra.Command, client *application.Client, quiet bool) error {
	wait := func(ctx context.Context) error {
		return waitReady(ctx, client)
	}
	if quiet {
		return wait(cmd.Context())
	}

	progress, unsubscribe := subscribeBootProgress(client)
	defer unsubscribe()
	return runBootSpinner(cmd.Context(), cmd.ErrOrStderr(), "Resolving your Bungie account...", progress, wait)
}

func saveSnapshot(ctx context.Context, app *app, session domain.Session, characters []domain.Character) error {
	snapshot := domain.SessionSnapshot{
		Platform:     session.Platform,
		Username:     session.Username,
		MembershipID: session.MembershipID,
		SavedAt:      app.now(),
	}
	for _, character := range characters {
		snapshot.Characters = append(snapshot.Characters, character.Summary())
	}
	if err := app.sessions.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func writeRoster(cmd *cobra.Command, app *app, r roster.Roster, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	rendered, err := app.rosterRenderer(r, roster.RenderOptions{
		Now:        app.now(),
		StaleAfter: snapshotStaleAfter,
	})
	if err != nil {
		return fmt.Errorf("render roster: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

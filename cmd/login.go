package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	authadapter "github.com/bnema/destiny-cli/internal/adapters/auth"
)

func newLoginCmd(app *app) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to Bungie.net through the browser",
		Long:  "login opens the Bungie.net authorization page, waits for the redirect on oauth.listen and stores the resulting grant in the credential store.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBrowserLogin(cmd, app, timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", defaultLoginTimeout, "How long to wait for the browser redirect")

	return cmd
}

func runBrowserLogin(cmd *cobra.Command, app *app, timeout time.Duration) error {
	if app.cfg.OAuth.ClientID == "" {
		return errors.New("oauth.client_id is not configured: register an application on bungie.net and set it in ~/.config/dst/config.toml")
	}

	state := authadapter.NewState()
	server, err := authadapter.StartCallbackServer(app.cfg.OAuth.Listen, state)
	if err != nil {
		return fmt.Errorf("start callback server: %w", err)
	}
	defer func() { _ = server.Close() }()

	authURL, err := authadapter.BuildAuthorizationURL(authadapter.AuthorizationRequest{
		AuthURL:  app.cfg.OAuth.AuthorizeURL,
		ClientID: app.cfg.OAuth.ClientID,
		State:    state,
	})
	if err != nil {
		return fmt.Errorf("build authorization url: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Open this URL to sign in to Bungie.net:\n%s\n", authURL)

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	code, err := server.WaitForCode(ctx)
	if err != nil {
		return fmt.Errorf("wait for oauth callback: %w", err)
	}

	tokens, err := app.tokenClient.Exchange(cmd.Context(), code)
	if err != nil {
		return fmt.Errorf("exchange code for tokens: %w", err)
	}
	if err := app.tokens.Save(cmd.Context(), tokens); err != nil {
		return err
	}

	if tokens.MembershipID != "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Signed in as bungie.net member %s\n", tokens.MembershipID)
		return nil
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Signed in")
	return nil
}

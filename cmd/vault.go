package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newVaultCmd(app *app) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Print the account vault",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.newClient()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			if err := waitReady(cmd.Context(), client); err != nil {
				return err
			}

			var data json.RawMessage
			if refresh {
				data, err = client.Vault.Refresh(cmd.Context())
			} else {
				data, err = client.Vault.Items(cmd.Context())
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd, data)
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Skip the cached copy")

	return cmd
}

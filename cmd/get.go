package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/destiny-cli/internal/application"
)

func newGetCmd(app *app) *cobra.Command {
	var filter string
	var method string
	var bypass bool
	var query map[string]string

	cmd := &cobra.Command{
		Use:   "get <endpoint>",
		Short: "Send a raw request to the Bungie API",
		Long: "get sends endpoint relative to the configured api url. {id}, {username} and {platform} " +
			"are filled from the resolved session, for example: dst get 'Destiny/{platform}/Account/{id}/Items/'",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.newClient()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			if !bypass {
				if err := waitReady(cmd.Context(), client); err != nil {
					return err
				}
			}

			data, err := client.Send(cmd.Context(), application.Request{
				URL:    args[0],
				Method: strings.ToUpper(method),
				Query:  query,
				Filter: filter,
				Bypass: bypass,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd, data)
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Dotted path to extract from the response, e.g. data.characters.0")
	cmd.Flags().StringVarP(&method, "method", "X", http.MethodGet, "HTTP method")
	cmd.Flags().BoolVar(&bypass, "bypass", false, "Do not wait for the account to be resolved")
	cmd.Flags().StringToStringVarP(&query, "query", "q", nil, "Extra query parameters (key=value)")

	return cmd
}

func writeJSON(cmd *cobra.Command, data json.RawMessage) error {
	if len(data) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "null")
		return err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return fmt.Errorf("format response: %w", err)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), out.String())
	return err
}

package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "dst",
		Short:         "Destiny CLI (dst): query the Bungie API from the terminal",
		Long:          "dst resolves your Bungie account once, keeps your characters in order of last play, and lets you query characters, inventories and the vault without getting throttled.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests and bootstrap progress to stderr")

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		rootCmd.AddCommand(newVersionCmd())
		return rootCmd
	}

	rootCmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		if verbose {
			app.logLevel.Set(slog.LevelDebug)
		}
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(app),
		newCharactersCmd(app),
		newCharacterCmd(app),
		newVaultCmd(app),
		newGetCmd(app),
		newSessionCmd(app),
	)

	return rootCmd
}

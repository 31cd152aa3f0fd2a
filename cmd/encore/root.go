package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var serverFlag string
	var tokenFlag string
	var userFlag int

	client := newClient(&serverFlag, &tokenFlag, &userFlag)

	rootCmd := &cobra.Command{
		Use:           "encore",
		Short:         "Encore score import CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "http://127.0.0.1:8443", "Base URL of the encored daemon")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "API token (or ENCORE_API_TOKEN)")
	rootCmd.PersistentFlags().IntVar(&userFlag, "user", 0, "User ID to import as")

	rootCmd.AddCommand(newImportCommand(client))
	rootCmd.AddCommand(newStatusCommand(client))
	rootCmd.AddCommand(newTypesCommand(client))

	return rootCmd
}

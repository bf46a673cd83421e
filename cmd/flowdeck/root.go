package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "flowdeck",
		Short: "Editor support service for license usage and the node catalog",
		Long: `flowdeck serves license usage reports and the node picker catalog to the
workflow editor, and prints both from the command line.`,
		SilenceUsage: true,
	}

	// Persistent flags (available to all commands)
	root.PersistentFlags().StringP("config", "c", "", "path to configuration file (defaults only when empty)")

	root.AddCommand(
		newServeCmd(),
		newCatalogCmd(),
		newLicenseCmd(),
		newVersionCmd(),
	)
	return root
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pitabwire/flowdeck/internal/license"
)

func newLicenseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "license",
		Short: "Print the current license usage snapshot as JSON",
		RunE:  runLicense,
	}
	cmd.Flags().Bool("verbose", false, "log backend selection to stderr")
	return cmd
}

func runLicense(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := cliLogger(cmd)
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	provider, closeProvider, err := buildLicenseProvider(ctx, cfg.License, logger)
	if err != nil {
		return err
	}
	if closeProvider != nil {
		defer closeProvider()
	}

	counter, closeCounter, err := buildTriggerCounter(ctx, cfg.Triggers, logger)
	if err != nil {
		return err
	}
	if closeCounter != nil {
		defer closeCounter()
	}

	snapshot, err := license.NewReporter(counter, provider).Usage(ctx)
	if err != nil {
		return fmt.Errorf("license usage: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(snapshot)
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pitabwire/flowdeck/internal/catalog"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the node picker catalog as JSON",
		Long: `Load node types from the configured directories, organize them into the
node picker catalog and print the flattened list.`,
		Example: `  flowdeck catalog --dir ./node-types --type Trigger
  flowdeck catalog --personalized n8n-nodes-base.slack --expanded
  flowdeck catalog --filter slack`,
		RunE: runCatalog,
	}

	cmd.Flags().StringSlice("dir", nil, "node type directories (overrides catalog.directories)")
	cmd.Flags().StringSlice("personalized", nil, "node type names for the suggested category (overrides catalog.personalized)")
	cmd.Flags().String("type", catalog.AllNodeFilter, "node filter: Regular, Trigger or All")
	cmd.Flags().String("filter", "", "only list nodes matching this search string")
	cmd.Flags().Bool("expanded", false, "mark categories as expanded")
	cmd.Flags().Bool("verbose", false, "log loading progress to stderr")
	return cmd
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dirs, _ := cmd.Flags().GetStringSlice("dir")
	if len(dirs) == 0 {
		dirs = cfg.Catalog.Directories
	}
	personalized := cfg.Catalog.Personalized
	if cmd.Flags().Changed("personalized") {
		personalized, _ = cmd.Flags().GetStringSlice("personalized")
	}
	selectType, _ := cmd.Flags().GetString("type")
	switch selectType {
	case catalog.RegularNodeFilter, catalog.TriggerNodeFilter, catalog.AllNodeFilter:
	default:
		return fmt.Errorf("invalid --type %q: must be Regular, Trigger or All", selectType)
	}
	filter, _ := cmd.Flags().GetString("filter")
	expanded, _ := cmd.Flags().GetBool("expanded")

	logger := cliLogger(cmd)
	defer func() { _ = logger.Sync() }()

	registry, err := loadNodeTypes(dirs, logger, nil)
	if err != nil {
		return err
	}

	svc := catalog.NewService(registry, catalogOptions(cfg.Catalog))
	list := svc.List(cmd.Context(), catalog.ListRequest{
		Personalized: personalized,
		Expanded:     expanded,
		SelectType:   selectType,
		Filter:       filter,
	})

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(list)
}

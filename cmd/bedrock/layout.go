package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbweber/bedrock/internal/config"
	"github.com/jbweber/bedrock/internal/loader"
)

// Layout commands
var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Work with StorageLayout files",
	Long: `Validate StorageLayout files and print the built-in default layouts.

A StorageLayout selects the topology (none, single or dual), whether the
partition table may be re-created automatically, each partition's start,
size and mount point, and the developer seeding switches.`,
}

var (
	layoutTopology string
	layoutName     string
)

func init() {
	layoutCmd.AddCommand(layoutShowCmd)
	layoutCmd.AddCommand(layoutDefaultCmd)

	layoutDefaultCmd.Flags().StringVarP(&layoutTopology, "topology", "t", string(config.TopologyDual), "Topology (none, single, dual)")
	layoutDefaultCmd.Flags().StringVar(&layoutName, "name", "board", "Layout name")
}

var layoutShowCmd = &cobra.Command{
	Use:   "show <layout.yaml>",
	Short: "Validate and show a layout",
	Long: `Load a StorageLayout, apply defaults, validate it and print the result.

Example:
  bedrock layout show board.yaml -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := newFormatter()
		if err != nil {
			return err
		}

		sl, err := loader.LoadFromFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to load layout: %w", err)
		}

		return printLayout(formatter.FormatLayout, sl)
	},
}

var layoutDefaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Print the default layout for a topology",
	Long: `Print the built-in default layout for a topology. Use -o yaml to get a
starting point for a layout file.

Example:
  bedrock layout default --topology single -o yaml > board.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := newFormatter()
		if err != nil {
			return err
		}

		cfg := &config.Storage{Topology: config.Topology(layoutTopology)}
		cfg.Normalize()
		cfg.AutoPartition = cfg.Partitioned()
		if err := cfg.Validate(); err != nil {
			return err
		}

		return printLayout(formatter.FormatLayout, loader.FromConfig(layoutName, cfg))
	},
}

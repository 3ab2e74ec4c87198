package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jbweber/bedrock/api/v1alpha1"
	"github.com/jbweber/bedrock/internal/boot"
)

// bootOpts is shared by the commands that touch the device.
var bootOpts boot.Options

// addDeviceFlags registers the device and layout flags on cmd.
func addDeviceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&bootOpts.ImagePath, "image", "i", "", "Block device image (required)")
	cmd.Flags().StringVarP(&bootOpts.LayoutPath, "layout", "l", "", "StorageLayout file (default: whole device at /fs1)")
	cmd.Flags().StringVar(&bootOpts.StoreDir, "store-dir", "", "Keep provisioning items in this directory instead of the primary filesystem")
	_ = cmd.MarkFlagRequired("image")
}

var bootCmd = &cobra.Command{
	Use:     "boot",
	Aliases: []string{"init"},
	Short:   "Bring storage online",
	Long: `Bring persistent storage online as described by a StorageLayout.

This will:
- Initialize the block device
- Mount each filesystem, creating or reformatting it when it cannot be mounted
- Re-create the partition table when auto-partitioning is enabled and a
  partition cannot be brought online
- Seed development credentials when developer mode is enabled

The layout with its observed status is printed afterwards, also on failure.

Example:
  bedrock boot --image sd.img --layout board.yaml --status status.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBoot(cmd, bootOpts)
	},
}

var sotpInitCmd = &cobra.Command{
	Use:   "sotp-init",
	Short: "Seed development credentials",
	Long: `Bring storage online and seed injected entropy and a root of trust into
the provisioning store, regardless of the layout's developer setting.

Credentials come from --seed-image, or from spec.developer.seedImage. When
neither is set, fresh credentials are generated. Values already stored are
kept; the store is write-once.

Only binaries built with -tags devmode can seed. Never use these
credentials in production.

Example:
  bedrock sotp-init --image sd.img --seed-image devseed.iso`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := bootOpts
		opts.ForceDeveloper = true
		return runBoot(cmd, opts)
	},
}

var reformatCmd = &cobra.Command{
	Use:   "reformat",
	Short: "Reformat every filesystem",
	Long: `Bring storage online and then destroy and re-create every configured
filesystem, primary partition first.

Warning: This permanently erases all data on the device's filesystems,
including stored credentials.

Example:
  bedrock reformat --image sd.img --layout board.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := newFormatter()
		if err != nil {
			return err
		}

		opts := bootOpts
		opts.Logger = logrus.StandardLogger()

		sl, runErr := boot.Reformat(cmd.Context(), opts)
		if err := printLayout(formatter.FormatLayout, sl); err != nil {
			return err
		}
		if runErr != nil {
			return fmt.Errorf("failed to reformat storage: %w", runErr)
		}
		return nil
	},
}

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "List stored credentials",
	Long: `List the items held by the provisioning store.

Only records are shown: kind, size and a short fingerprint. Secret
material is never printed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := newFormatter()
		if err != nil {
			return err
		}

		opts := bootOpts
		opts.Logger = logrus.StandardLogger()

		items, err := boot.Credentials(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("failed to list credentials: %w", err)
		}

		result, err := formatter.FormatItems(items)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Print(result)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{bootCmd, sotpInitCmd, reformatCmd, credentialsCmd} {
		addDeviceFlags(cmd)
	}
	for _, cmd := range []*cobra.Command{bootCmd, sotpInitCmd} {
		cmd.Flags().StringVar(&bootOpts.SeedImage, "seed-image", "", "Seed image holding development credentials")
		cmd.Flags().StringVar(&bootOpts.StatusPath, "status", "", "Write the layout with its observed status to this file")
	}
	bootCmd.Flags().BoolVar(&bootOpts.ForceDeveloper, "developer", false, "Enable developer mode regardless of the layout")
}

func runBoot(cmd *cobra.Command, opts boot.Options) error {
	formatter, err := newFormatter()
	if err != nil {
		return err
	}

	opts.Logger = logrus.StandardLogger()

	sl, runErr := boot.Run(cmd.Context(), opts)
	if err := printLayout(formatter.FormatLayout, sl); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("storage bring-up failed: %w", runErr)
	}
	return nil
}

// printLayout prints sl when it is set.
func printLayout(format func(*v1alpha1.StorageLayout) (string, error), sl *v1alpha1.StorageLayout) error {
	if sl == nil {
		return nil
	}
	result, err := format(sl)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Print(result)
	return nil
}

package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jbweber/bedrock/api/v1alpha1"
	"github.com/jbweber/bedrock/internal/disk"
	"github.com/jbweber/bedrock/internal/storage"
)

// Image management commands
var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Manage block device images",
	Long: `Create and inspect the image files that stand in for a device's
block storage (SD card, eMMC or SPI flash).`,
}

var imageSize string

func init() {
	imageCmd.AddCommand(imageCreateCmd)
	imageCmd.AddCommand(imageProbeCmd)

	imageCreateCmd.Flags().StringVarP(&imageSize, "size", "s", "4GiB", "Image size (e.g. 512MiB, 4GiB)")
}

var imageCreateCmd = &cobra.Command{
	Use:   "create <path>",
	Short: "Create an empty image",
	Long: `Create a sparse, zero-filled image file. The first boot against it
formats the whole device or creates the partition table.

Example:
  bedrock image create sd.img --size 4GiB`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		size, err := v1alpha1.ParseByteSize(imageSize)
		if err != nil {
			return fmt.Errorf("invalid size: %w", err)
		}

		if err := disk.CreateImage(path, size.Bytes()); err != nil {
			return fmt.Errorf("failed to create image: %w", err)
		}

		fmt.Printf("✓ Image %s created (%s)\n", path, humanize.IBytes(size.Bytes()))
		return nil
	},
}

var imageProbeCmd = &cobra.Command{
	Use:   "probe <path>",
	Short: "Show what an image holds",
	Long: `Read the first sector of an image and report whether it holds an MBR
partition table, a whole-device FAT filesystem or nothing. For MBR
images the partition entries are listed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		info, err := storage.DetectMediaFormatFile(path)
		if err != nil {
			return fmt.Errorf("failed to probe image: %w", err)
		}

		fmt.Printf("Image: %s\n", path)
		fmt.Printf("Format: %s\n", info.Format)
		if info.Format != storage.MediaFormatMBR {
			return nil
		}

		img := disk.NewImage(path)
		if err := img.Init(); err != nil {
			return err
		}
		defer func() { _ = img.Deinit() }()

		parts, err := img.Partitions()
		if err != nil {
			return fmt.Errorf("failed to read partition table: %w", err)
		}

		fmt.Printf("%-10s %-6s %12s %12s\n", "PARTITION", "TYPE", "START", "SIZE")
		for _, p := range parts {
			fmt.Printf("%-10d 0x%02x   %12s %12s\n",
				p.Number,
				p.Type,
				humanize.IBytes(p.Start),
				humanize.IBytes(p.Size),
			)
		}
		return nil
	},
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jbweber/bedrock/internal/provision"
	"github.com/jbweber/bedrock/internal/seed"
)

// Seed image commands
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Manage development seed images",
	Long: `Create and inspect seed images: small ISO 9660 volumes labelled DEVSEED
that carry development entropy and a root of trust for sotp-init.

Seed images hold secret material. Keep them out of version control and
never use them for production devices.`,
}

var seedNoEntropy bool

func init() {
	seedCmd.AddCommand(seedGenerateCmd)
	seedCmd.AddCommand(seedInspectCmd)

	seedGenerateCmd.Flags().BoolVar(&seedNoEntropy, "no-entropy", false, "Omit entropy, for devices with a hardware entropy source")
}

var seedGenerateCmd = &cobra.Command{
	Use:   "generate <path>",
	Short: "Generate a seed image with fresh credentials",
	Long: `Generate random development credentials and write them to a new seed
image. An existing file is never overwritten.

Example:
  bedrock seed generate devseed.iso`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		creds, err := seed.Generate()
		if err != nil {
			return fmt.Errorf("failed to generate credentials: %w", err)
		}
		if seedNoEntropy {
			creds.Entropy = nil
		}

		if err := seed.WriteISO(path, creds); err != nil {
			return fmt.Errorf("failed to write seed image: %w", err)
		}

		fmt.Printf("✓ Seed image %s written\n", path)
		fmt.Printf("Root of trust fingerprint: %s\n", provision.Fingerprint(creds.RootOfTrust))
		return nil
	},
}

var seedInspectCmd = &cobra.Command{
	Use:   "inspect <path>",
	Short: "Show seed image metadata",
	Long: `Validate a seed image and print its metadata. Only fingerprints are
shown, never the credential bytes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contents, err := seed.ReadISO(args[0])
		if err != nil {
			return fmt.Errorf("failed to read seed image: %w", err)
		}

		data, err := yaml.Marshal(&contents.MetaData)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}

		fmt.Print(string(data))
		fmt.Printf("entropy: %t\n", len(contents.Credentials.Entropy) > 0)
		return nil
	},
}

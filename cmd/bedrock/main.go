package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jbweber/bedrock/internal/output"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Global flags
var (
	logLevel     string
	logFormat    string
	outputFormat string
	noHeaders    bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bedrock",
	Short: "Bedrock - persistent storage bring-up for embedded devices",
	Long: `Bedrock brings a device's persistent storage online at boot.

It initializes the block device, mounts or creates one or two FAT
partitions described by a StorageLayout, and in development builds seeds
the provisioning store with injected entropy and a root of trust.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(logLevel, logFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", string(output.FormatTable), "Output format (table, yaml, json)")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false, "Omit table headers")

	rootCmd.AddCommand(bootCmd)
	rootCmd.AddCommand(reformatCmd)
	rootCmd.AddCommand(sotpInitCmd)
	rootCmd.AddCommand(credentialsCmd)
	rootCmd.AddCommand(imageCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(layoutCmd)
}

// setupLogging configures the standard logrus logger. Logs go to stderr so
// they never mix with formatted output.
func setupLogging(level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stderr)

	switch format {
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format %q (must be text or json)", format)
	}
	return nil
}

// newFormatter validates the -o flag and returns the matching formatter.
func newFormatter() (output.Formatter, error) {
	if err := output.ValidateFormat(outputFormat); err != nil {
		return nil, err
	}
	return output.NewFormatter(output.Options{
		Format:    output.Format(outputFormat),
		NoHeaders: noHeaders,
	})
}

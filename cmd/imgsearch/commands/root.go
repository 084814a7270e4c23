// Package commands defines all Cobra CLI commands for the imgsearch binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/xximjasonxx/image-search-example/internal/audit"
	"github.com/xximjasonxx/image-search-example/internal/config"
	"github.com/xximjasonxx/image-search-example/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "imgsearch",
		Short: "Event-driven image enrichment and vector similarity search",
		Long: `imgsearch listens for blob-created events from Azure Storage, enriches
each uploaded image with an embedding and visual annotations from Azure AI
Vision, and indexes the result in Qdrant for text-to-image similarity search.

Configuration comes from environment variables or a YAML config file
(~/.imgsearch/config.yaml); environment variables always win.
See 'imgsearch --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A local .env is a development convenience; absence is normal.
			_ = godotenv.Load()

			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.imgsearch/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewProcessCmd(),
		NewSearchCmd(),
		NewVersionCmd(),
	)

	return root
}

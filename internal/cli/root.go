package cli

import (
	"github.com/spf13/cobra"
)

const (
	CmdServe   = "serve"
	CmdCheck   = "check"
	CmdVersion = "version"

	FlagConfig            = "config"
	FlagDescriptionConfig = "Configuration file path (defaults to configs/config.yaml)"
)

// Version is overridden at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Aggregation gateway - compose many HTTP sub-requests into one JSON document",
	Long: `The aggregation gateway serves key-value lookups for a fixed set of resource kinds
and a /multiple endpoint that fetches any number of internal paths or external URLs
and streams their responses back as a single JSON object keyed by caller-chosen names.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, FlagConfig, "c", "", FlagDescriptionConfig)
	rootCmd.AddCommand(serveCmd, checkCmd, versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

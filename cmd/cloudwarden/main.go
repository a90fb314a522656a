package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudwarden/cloudwarden/cmd/cloudwarden/commands"
	"github.com/cloudwarden/cloudwarden/internal/config"
	"github.com/cloudwarden/cloudwarden/internal/logging"
	"github.com/cloudwarden/cloudwarden/internal/metrics"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		workspacePath   string
		credentialsPath string
		noColor         bool
		debug           bool
		enableMetrics   bool
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "cloudwarden",
		Short: "Ephemeral cloud credentials from managed sessions",
		Long: `cloudwarden keeps a workspace of cloud account sessions and turns the
active ones into short-lived credentials, written to the AWS shared
credentials file or cached as Azure management tokens.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Logger = logging.New(debug, noColor)
			cfg.WorkspacePath = workspacePath
			cfg.CredentialsPath = credentialsPath
			cfg.Debug = debug
			cfg.NoColor = noColor
			if enableMetrics {
				metrics.InitMetrics()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&workspacePath, "workspace", "", "Workspace file path (default ~/.cloudwarden/workspace.yaml)")
	rootCmd.PersistentFlags().StringVar(&credentialsPath, "credentials-file", "", "AWS shared credentials file path (default ~/.aws/credentials)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&enableMetrics, "metrics", false, "Register Prometheus metrics")

	rootCmd.AddCommand(
		commands.NewSessionCommand(cfg),
		commands.NewRefreshCommand(cfg),
		commands.NewSSOCommand(cfg),
		commands.NewProfileCommand(cfg),
	)

	return rootCmd.Execute()
}

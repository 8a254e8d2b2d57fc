package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stratastor/bexec/cmd/config"
	"github.com/stratastor/bexec/cmd/health"
	"github.com/stratastor/bexec/cmd/logs"
	"github.com/stratastor/bexec/cmd/run"
	"github.com/stratastor/bexec/cmd/serve"
	"github.com/stratastor/bexec/cmd/status"
	"github.com/stratastor/bexec/cmd/version"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bexec",
		Short: "Bexec: Backup Exec operator automation",
	}

	rootCmd.AddCommand(run.NewRunCmd())
	rootCmd.AddCommand(serve.NewServeCmd())
	rootCmd.AddCommand(version.NewVersionCmd())
	rootCmd.AddCommand(health.NewHealthCmd())
	rootCmd.AddCommand(status.NewStatusCmd())
	rootCmd.AddCommand(logs.NewLogsCmd())
	rootCmd.AddCommand(config.NewConfigCmd())

	return rootCmd
}

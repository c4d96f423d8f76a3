// Command advisor is the terminal front-end of the advisor desk: it serves
// the HTTP API, runs an interactive chat against the backend's agents and
// teams, and manages stored financial profiles.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentoven/advisor-desk/internal/config"
	"github.com/agentoven/advisor-desk/pkg/server"
)

var (
	configPath string
	logLevel   string
	cfg        *config.Config
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "advisor",
		Short: "Chat with financial advisor agents and teams",
		Long: `advisor talks to an agent backend and keeps user financial profiles.

  advisor serve              Run the HTTP API
  advisor chat               Interactive chat (@agent-id message)
  advisor profile list       Manage stored profiles`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = os.Getenv("ADVISOR_CONFIG")
			}
			loaded, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			if logLevel != "" {
				loaded.LogLevel = logLevel
			}
			cfg = loaded
			server.ConfigureLogging(os.Stderr, cfg.LogLevel)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (env: ADVISOR_CONFIG)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newServeCmd(), newChatCmd(), newProfileCmd())
	return root
}

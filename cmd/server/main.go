// Advisor Desk API server.
//
// Serves the chat front-end over HTTP: catalog browsing and search, per-tab
// chat sessions routed to agents and teams on the backend, and the
// financial profile store whose summaries are prepended to messages.
package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/agentoven/advisor-desk/internal/config"
	"github.com/agentoven/advisor-desk/pkg/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		server.ConfigureLogging(os.Stderr, "info")
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	server.ConfigureLogging(os.Stderr, cfg.LogLevel)

	log.Info().Str("version", cfg.Version).Msg("Advisor Desk starting...")

	if err := server.Serve(context.Background(), cfg); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// Command flowdash is the terminal dashboard client for the
// workflow-execution service: manage definitions, run instances and follow
// their status live.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/flowdash/flowdash/pkg/log"
)

func main() {
	logger := log.WithModule("cli")

	cmd := &cli.Command{
		Name:                  "flowdash",
		Usage:                 "Dashboard client for the workflow-execution service",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "Base URL of the workflow-execution REST API",
				Value:   "http://localhost:9090",
				Sources: cli.EnvVars("FLOWDASH_SERVER_URL"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token obtained from the login command",
				Sources: cli.EnvVars("FLOWDASH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OTLP traces for every API call",
				Sources: cli.EnvVars("FLOWDASH_TRACING"),
			},
		},
		Commands: []*cli.Command{
			loginCommand(logger),
			definitionsCommand(logger),
			instancesCommand(logger),
			watchCommand(logger),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

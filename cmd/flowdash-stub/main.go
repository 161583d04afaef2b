// Command flowdash-stub runs a local stand-in for the workflow-execution
// backend: the REST API, the websocket status feed and a simulator that
// walks created instances through their node statuses.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/flowdash/flowdash/internal/stubapi"
	"github.com/flowdash/flowdash/pkg/log"
)

const (
	defaultPort   = 9090
	defaultWSPort = 9091
)

func main() {
	logger := log.WithModule("stub")

	cmd := &cli.Command{
		Name:                  "flowdash-stub",
		Usage:                 "Run a local stub of the workflow-execution backend",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to serve the REST API on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.IntFlag{
				Name:    "ws-port",
				Usage:   "Port to serve the websocket status feed on",
				Value:   defaultWSPort,
				Sources: cli.EnvVars("WS_PORT"),
			},
			&cli.DurationFlag{
				Name:    "step-delay",
				Usage:   "How long each simulated node runs",
				Value:   stubapi.DefaultStepDelay,
				Sources: cli.EnvVars("STEP_DELAY"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Starting stub backend")

			server := stubapi.NewServer(logger, command.Duration("step-delay"))

			return server.Start(ctx, command.Int("port"), command.Int("ws-port"))
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		logger.Error("Stub backend failed", "error", err)
		os.Exit(1)
	}
}

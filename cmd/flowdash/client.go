package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/flowdash/flowdash/pkg/api"
	"github.com/flowdash/flowdash/pkg/log"
	"github.com/flowdash/flowdash/pkg/otelhelper"
)

// newClient builds the REST client from the root flags, wiring the logger
// and, when requested, an OTLP tracer.
func newClient(ctx context.Context, command *cli.Command, logger *slog.Logger) (*api.Client, error) {
	log.Setup(command.String("log-level"))

	opts := []api.Option{api.WithLogger(logger)}

	if command.Bool("tracing") {
		tracer, err := otelhelper.NewTracer(ctx, "flowdash")
		if err != nil {
			return nil, fmt.Errorf("initializing tracing: %w", err)
		}

		opts = append(opts, api.WithTracer(tracer))
	}

	client := api.NewClient(command.String("server-url"), opts...)

	if token := command.String("token"); token != "" {
		client.SetToken(token)
	}

	return client, nil
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

func loginCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Authenticate and print a bearer token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "username",
				Aliases:  []string{"u"},
				Usage:    "Account username",
				Required: true,
				Sources:  cli.EnvVars("FLOWDASH_USERNAME"),
			},
			&cli.StringFlag{
				Name:     "password",
				Usage:    "Account password",
				Required: true,
				Sources:  cli.EnvVars("FLOWDASH_PASSWORD"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			client, err := newClient(ctx, command, logger)
			if err != nil {
				return err
			}

			token, err := client.Login(ctx, command.String("username"), command.String("password"))
			if err != nil {
				return err
			}

			fmt.Println(token)

			return nil
		},
	}
}

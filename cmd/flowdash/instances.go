package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/flowdash/flowdash/pkg/models"
)

func instancesCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:    "instances",
		Aliases: []string{"i"},
		Usage:   "Manage workflow instances",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List all workflow instances",
				Action: func(ctx context.Context, command *cli.Command) error {
					client, err := newClient(ctx, command, logger)
					if err != nil {
						return err
					}

					instances, err := client.ListInstances(ctx)
					if err != nil {
						return err
					}

					printInstanceTable(instances)

					return nil
				},
			},
			{
				Name:      "get",
				Usage:     "Print one workflow instance as JSON, node statuses included",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, command *cli.Command) error {
					id, err := argID(command)
					if err != nil {
						return err
					}

					client, err := newClient(ctx, command, logger)
					if err != nil {
						return err
					}

					instance, err := client.GetInstance(ctx, id)
					if err != nil {
						return err
					}

					return printJSON(instance)
				},
			},
			{
				Name:      "run",
				Usage:     "Start an execution of a workflow definition",
				ArgsUsage: "<definition-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "input",
						Usage: "Input payload passed to the execution verbatim",
					},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					definitionID, err := argID(command)
					if err != nil {
						return err
					}

					client, err := newClient(ctx, command, logger)
					if err != nil {
						return err
					}

					instance, err := client.CreateInstance(ctx, definitionID, command.String("input"))
					if err != nil {
						return err
					}

					return printJSON(instance)
				},
			},
			{
				Name:      "terminate",
				Usage:     "Request cancellation of a running instance",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, command *cli.Command) error {
					id, err := argID(command)
					if err != nil {
						return err
					}

					client, err := newClient(ctx, command, logger)
					if err != nil {
						return err
					}

					return client.TerminateInstance(ctx, id)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete an instance record",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, command *cli.Command) error {
					id, err := argID(command)
					if err != nil {
						return err
					}

					client, err := newClient(ctx, command, logger)
					if err != nil {
						return err
					}

					return client.DeleteInstance(ctx, id)
				},
			},
		},
	}
}

func printInstanceTable(instances []models.WorkflowInstance) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDEFINITION\tSTATUS\tSTARTED\tDURATION")

	for _, instance := range instances {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n",
			instance.ID, instance.DefinitionID, instance.Status,
			instance.StartTime.Format("15:04:05"),
			instance.Duration().Round(time.Millisecond))
	}

	_ = w.Flush()
}

// argID parses the single positional id argument of a subcommand.
func argID(command *cli.Command) (int64, error) {
	raw := command.Args().First()
	if raw == "" {
		return 0, errors.New("an id argument is required")
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}

	return id, nil
}

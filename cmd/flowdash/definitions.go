package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	cli "github.com/urfave/cli/v3"

	"github.com/flowdash/flowdash/pkg/models"
	"github.com/flowdash/flowdash/pkg/registry"
)

func definitionsCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:    "definitions",
		Aliases: []string{"d"},
		Usage:   "Manage workflow definitions",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List all workflow definitions",
				Action: func(ctx context.Context, command *cli.Command) error {
					client, err := newClient(ctx, command, logger)
					if err != nil {
						return err
					}

					definitions, err := client.ListDefinitions(ctx)
					if err != nil {
						return err
					}

					w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "ID\tNAME\tNODES\tDESCRIPTION")

					for _, d := range definitions {
						fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", d.ID, d.Name, len(d.Graph.Nodes), d.Description)
					}

					return w.Flush()
				},
			},
			{
				Name:      "get",
				Usage:     "Print one workflow definition as JSON",
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

					definition, err := client.GetDefinition(ctx, id)
					if err != nil {
						return err
					}

					return printJSON(definition)
				},
			},
			{
				Name:  "create",
				Usage: "Create a workflow definition from a JSON file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the definition JSON",
						Required: true,
					},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					definition, err := readDefinition(command.String("file"))
					if err != nil {
						return err
					}

					client, err := newClient(ctx, command, logger)
					if err != nil {
						return err
					}

					created, err := client.CreateDefinition(ctx, definition)
					if err != nil {
						return err
					}

					return printJSON(created)
				},
			},
			{
				Name:      "update",
				Usage:     "Replace a workflow definition with the contents of a JSON file",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the definition JSON",
						Required: true,
					},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					id, err := argID(command)
					if err != nil {
						return err
					}

					definition, err := readDefinition(command.String("file"))
					if err != nil {
						return err
					}

					client, err := newClient(ctx, command, logger)
					if err != nil {
						return err
					}

					updated, err := client.UpdateDefinition(ctx, id, definition)
					if err != nil {
						return err
					}

					return printJSON(updated)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a workflow definition",
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

					return client.DeleteDefinition(ctx, id)
				},
			},
		},
	}
}

func readDefinition(path string) (models.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.WorkflowDefinition{}, fmt.Errorf("reading definition file: %w", err)
	}

	var definition models.WorkflowDefinition
	if err := json.Unmarshal(data, &definition); err != nil {
		return models.WorkflowDefinition{}, fmt.Errorf("parsing definition file: %w", err)
	}

	if err := validateDefinition(definition); err != nil {
		return models.WorkflowDefinition{}, err
	}

	return definition, nil
}

// validateDefinition checks node configs against their type schemas before
// anything goes over the wire. Types the client does not know are left for
// the backend to judge.
func validateDefinition(definition models.WorkflowDefinition) error {
	reg := registry.NewRegistry(slog.Default())
	reg.RegisterDefaultNodes()

	for _, node := range definition.Graph.Nodes {
		if !reg.Registered(node.Type) {
			continue
		}

		if err := reg.ValidateConfig(node.Type, node.Config); err != nil {
			return fmt.Errorf("node %s: %w", node.ID, err)
		}
	}

	return nil
}

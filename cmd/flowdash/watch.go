package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	cli "github.com/urfave/cli/v3"

	"github.com/flowdash/flowdash/pkg/channels/kafka"
	"github.com/flowdash/flowdash/pkg/models"
	"github.com/flowdash/flowdash/pkg/statuschannel"
	"github.com/flowdash/flowdash/pkg/statusstore"
)

func watchCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Follow instance statuses live, combining push events with polling",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:    "instance",
				Aliases: []string{"i"},
				Usage:   "Instance id to follow; follows the whole list when omitted",
			},
			&cli.StringFlag{
				Name:    "channel",
				Usage:   "Push transport: websocket or kafka",
				Value:   "websocket",
				Sources: cli.EnvVars("FLOWDASH_CHANNEL"),
			},
			&cli.StringFlag{
				Name:    "ws-url",
				Usage:   "Websocket endpoint of the status feed",
				Value:   "ws://localhost:9091/ws",
				Sources: cli.EnvVars("FLOWDASH_WS_URL"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated kafka brokers (channel=kafka)",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "kafka-consumer-group",
				Usage:   "Kafka consumer group (channel=kafka)",
				Value:   "flowdash",
				Sources: cli.EnvVars("KAFKA_CONSUMER_GROUP"),
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Polling interval; defaults to 2s for one instance, 5s for the list",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return runWatch(ctx, command, logger)
		},
	}
}

func runWatch(ctx context.Context, command *cli.Command, logger *slog.Logger) error {
	client, err := newClient(ctx, command, logger)
	if err != nil {
		return err
	}

	channel, err := newChannel(command, logger)
	if err != nil {
		return err
	}

	store := statusstore.NewStore(client, logger)
	defer store.Close()

	store.Attach(channel)

	// A second listener prints the raw push events as they arrive.
	channel.Subscribe("watch-printer", func(event models.StatusUpdateEvent) {
		fmt.Printf("%s  instance %d  %s  %s\n",
			time.UnixMilli(event.Timestamp).Format("15:04:05"),
			event.InstanceID, event.Status, event.Message)
	})

	if err := channel.Connect(ctx, client.Token()); err != nil {
		return err
	}

	defer func() {
		if err := channel.Disconnect(); err != nil {
			logger.Warn("Failed to close status channel", "error", err)
		}
	}()

	watchCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	interval := command.Duration("interval")

	if id := command.Int64("instance"); id != 0 {
		if err := store.Watch(watchCtx, id, interval); err != nil && watchCtx.Err() == nil {
			return err
		}

		if instance, ok := store.Instance(id); ok {
			return printJSON(instance)
		}

		return nil
	}

	err = store.WatchAll(watchCtx, interval)
	if err != nil && watchCtx.Err() == nil {
		return err
	}

	printInstanceTable(store.Instances())

	return nil
}

// newChannel picks the push transport. The websocket talks to the backend's
// relay endpoint; kafka reads the same topic straight from the broker.
func newChannel(command *cli.Command, logger *slog.Logger) (statuschannel.Channel, error) {
	switch command.String("channel") {
	case "websocket":
		return statuschannel.NewWebSocketChannel(command.String("ws-url"), logger), nil
	case "kafka":
		subscriber, err := kafka.NewSubscriber(
			watermill.NewSlogLogger(logger),
			command.String("kafka-brokers"),
			command.String("kafka-consumer-group"),
		)
		if err != nil {
			return nil, err
		}

		return statuschannel.NewBus(subscriber, logger), nil
	default:
		return nil, fmt.Errorf("unknown channel %q (want websocket or kafka)", command.String("channel"))
	}
}

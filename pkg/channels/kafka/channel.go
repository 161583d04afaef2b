// Package kafka creates the subscriber used to read the engine's status
// topic straight from the broker, bypassing the websocket relay. Useful for
// ops deployments sitting next to the engine.
package kafka

import (
	"errors"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
)

// NewSubscriber creates a consumer for the status topic. Status updates are
// hints, not a ledger: consumption starts at the newest offset so a fresh
// dashboard does not replay history.
func NewSubscriber(logger watermill.LoggerAdapter, brokerList, consumerGroup string) (*kafka.Subscriber, error) {
	brokers := strings.Split(brokerList, ",")
	if len(brokers) == 0 || brokers[0] == "" {
		return nil, errors.New("kafka broker list is empty")
	}

	saramaConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest

	return kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaConfig,
			ConsumerGroup:         consumerGroup,
			OTELEnabled:           true,
		},
		logger,
	)
}

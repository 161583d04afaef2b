package stubapi

import (
	"encoding/json"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	watermillchannel "github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/flowdash/flowdash/pkg/models"
	"github.com/flowdash/flowdash/pkg/statuschannel"
)

// statusRelay fans each simulator event out to both feeds, mirroring how the
// real backend relays its broker topic to the websocket: connected websocket
// clients and the in-memory pub/sub get the same frames.
type statusRelay struct {
	hub    *WSHub
	pubSub *watermillchannel.GoChannel
	logger *slog.Logger
}

func (r *statusRelay) Broadcast(event models.StatusUpdateEvent) {
	r.hub.Broadcast(event)

	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("Failed to encode status event", "error", err)

		return
	}

	err = r.pubSub.Publish(statuschannel.Topic, message.NewMessage(watermill.NewUUID(), payload))
	if err != nil {
		r.logger.Warn("Failed to publish status event", "instance_id", event.InstanceID, "error", err)
	}
}

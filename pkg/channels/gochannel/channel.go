// Package gochannel provides the in-memory status pub/sub used by tests and
// the dev stub backend. No external dependencies, same wire contract as the
// broker transport.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// NewPubSub creates the in-memory pub/sub. The same instance serves as both
// publisher and subscriber.
func NewPubSub(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: 256,
			Persistent:          false,
		},
		logger,
	)
}

// NewTestPubSub creates a pub/sub tuned for deterministic tests: small
// buffer, publishes block until the subscriber acks.
func NewTestPubSub(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            16,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: true,
		},
		logger,
	)
}

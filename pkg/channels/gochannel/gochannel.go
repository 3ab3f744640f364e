// Package gochannel builds the in-memory watermill transport used by a single
// process and by tests of the event bridge.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// New returns a GoChannel that serves as both ends of the bridge. An ordered
// channel keeps every message for late subscribers and blocks publishers
// until the message is acked.
func New(logger watermill.LoggerAdapter, ordered bool) *gochannel.GoChannel {
	cfg := gochannel.Config{OutputChannelBuffer: 1000}

	if ordered {
		cfg = gochannel.Config{
			OutputChannelBuffer:            10,
			Persistent:                     true,
			BlockPublishUntilSubscriberAck: true,
		}
	}

	return gochannel.NewGoChannel(cfg, logger)
}

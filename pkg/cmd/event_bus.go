package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/supplyflow/pkg/channels/gochannel"
	"github.com/dukex/supplyflow/pkg/channels/kafka"
)

var ErrUnsupportedEventBus = errors.New("unsupported event bus provider")

// NewBridgeChannel builds the watermill transport that relays events between
// instances. Provider "none" (or empty) keeps events in process and returns nils.
//
//nolint:ireturn
func NewBridgeChannel(provider, instanceID string, logger *slog.Logger) (message.Publisher, message.Subscriber, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "", "none":
		return nil, nil, nil
	case "gochannel":
		channel := gochannel.New(wmLogger, false)

		return channel, channel, nil
	case "kafka":
		brokers, err := kafka.BrokersFromEnv()
		if err != nil {
			return nil, nil, err
		}

		pub, sub, err := kafka.CreateChannel(wmLogger, brokers, instanceID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return pub, sub, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedEventBus, provider)
	}
}

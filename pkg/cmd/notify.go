package cmd

import (
	"log/slog"

	"github.com/dukex/supplyflow/pkg/notify"
)

// NewNotifier always logs notifications and also publishes them to NATS when
// natsURL is set. perSecond > 0 throttles the combined sink. The returned
// close func is never nil.
//
//nolint:ireturn
func NewNotifier(natsURL string, perSecond float64, logger *slog.Logger) (notify.Sink, func() error, error) {
	sinks := notify.Multi{notify.NewLogSink(logger)}
	closeFn := func() error { return nil }

	if natsURL != "" {
		natsSink, err := notify.DialNATS(natsURL, logger)
		if err != nil {
			return nil, nil, err
		}

		sinks = append(sinks, natsSink)
		closeFn = natsSink.Close
	}

	var sink notify.Sink = sinks
	if perSecond > 0 {
		sink = notify.NewThrottled(sinks, perSecond, int(max(perSecond, 1)))
	}

	return sink, closeFn, nil
}

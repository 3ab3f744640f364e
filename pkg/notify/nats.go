package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

const DefaultSubjectPrefix = "notifications.supplyflow"

// NATSSink publishes notifications as JSON on <prefix>.<channel>.
type NATSSink struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

// DialNATS connects to url and returns a sink owning the connection.
func DialNATS(url string, logger *slog.Logger) (*NATSSink, error) {
	conn, err := nats.Connect(url, nats.Name("supplyflow"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return NewNATSSink(conn, DefaultSubjectPrefix, logger), nil
}

func NewNATSSink(conn *nats.Conn, prefix string, logger *slog.Logger) *NATSSink {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	return &NATSSink{conn: conn, prefix: prefix, logger: logger.With("module", "notify_nats")}
}

func (s *NATSSink) Subject(channel Channel) string {
	return s.prefix + "." + string(channel)
}

func (s *NATSSink) Send(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	subject := s.Subject(n.Channel)

	err = s.conn.Publish(subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish notification on %s: %w", subject, err)
	}

	s.logger.DebugContext(ctx, "notification published", "subject", subject, "recipients", len(n.Recipients))

	return nil
}

// Close drains pending messages and closes the connection.
func (s *NATSSink) Close() error {
	return s.conn.Drain()
}

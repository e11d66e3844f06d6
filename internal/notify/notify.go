// Package notify publishes attempt and run events to NATS JetStream so other
// services (dashboards, package indexers) can react to new packages.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/paulproteus/for-each-meteor-app/internal/events"
	"github.com/paulproteus/for-each-meteor-app/internal/logfields"
)

const publishTimeout = 5 * time.Second

type publisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Notifier implements events.Sink over JetStream. Attempts go to <subject>.attempt,
// run summaries to <subject>.run.
type Notifier struct {
	conn    *nats.Conn
	js      publisher
	subject string
}

// Connect dials natsURL and prepares a JetStream publisher.
func Connect(natsURL, subject string) (*Notifier, error) {
	conn, err := nats.Connect(natsURL, nats.Name("meteorspk"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	slog.Info("NATS notifier initialized", logfields.URL(natsURL), slog.String("subject", subject))
	return &Notifier{conn: conn, js: js, subject: subject}, nil
}

func (n *Notifier) AttemptFinished(ctx context.Context, e events.AttemptFinished) error {
	return n.publish(ctx, n.subject+".attempt", e)
}

func (n *Notifier) RunFinished(ctx context.Context, e events.RunFinished) error {
	return n.publish(ctx, n.subject+".run", e)
}

func (n *Notifier) publish(ctx context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if _, err := n.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	slog.Debug("Published event", slog.String("subject", subject))
	return nil
}

// Close drains the connection.
func (n *Notifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}

var _ events.Sink = (*Notifier)(nil)

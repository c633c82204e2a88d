package nats

import (
	"context"
	"fmt"
	"time"

	"ragchat-client/pkg/events"

	"github.com/nats-io/nats.go"
)

// Publisher sends session events on core NATS. Events are broadcast to every
// subscribed process; nothing is persisted.
type Publisher struct {
	nc *nats.Conn
}

func connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

func NewPublisher(url string) (*Publisher, error) {
	nc, err := connect(url, "ragchat-publisher")
	if err != nil {
		return nil, err
	}
	return &Publisher{nc: nc}, nil
}

// Publish sends an event to ragchat.events.<type>. ctx bounds the flush.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	data, err := encodeEvent(event)
	if err != nil {
		return err
	}

	subject := Subject(event.EventType())
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event to subject %s: %w", subject, err)
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush subject %s: %w", subject, err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

package nats

import (
	"context"
	"fmt"

	"ragchat-client/internal/pkg/logger"
	"ragchat-client/pkg/events"

	"github.com/nats-io/nats.go"
)

// EventHandler is a function that processes an event.
type EventHandler func(ctx context.Context, event events.Event) error

type Subscriber struct {
	nc     *nats.Conn
	subs   []*nats.Subscription
	logger logger.ILogger
}

func NewSubscriber(url string, log logger.ILogger) (*Subscriber, error) {
	nc, err := connect(url, "ragchat-subscriber")
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, logger: log}, nil
}

// Subscribe registers handler for one event type. Undecodable messages and
// handler failures are logged and dropped; core NATS has no redelivery.
func (s *Subscriber) Subscribe(eventType string, handler EventHandler) error {
	subject := Subject(eventType)
	sub, err := s.nc.Subscribe(subject, func(msg *nats.Msg) {
		event, err := decodeEvent(msg.Data)
		if err != nil {
			s.logger.Warn("NatsSubscriber", "Dropping undecodable event", map[string]interface{}{
				"subject": msg.Subject,
				"error":   err.Error(),
			})
			return
		}
		if err := handler(context.Background(), event); err != nil {
			s.logger.Error("NatsSubscriber", "Handler failed", map[string]interface{}{
				"subject": msg.Subject,
				"error":   err,
			})
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	s.subs = append(s.subs, sub)
	s.logger.Info("NatsSubscriber", "Subscribed", map[string]interface{}{"subject": subject})
	return nil
}

func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}

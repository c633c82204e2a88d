package service

import (
	"context"
	"encoding/json"

	"ragchat-client/internal/dto"
	"ragchat-client/internal/entity"
	"ragchat-client/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

// ISnapshotSink receives snapshots read off the bus.
type ISnapshotSink interface {
	BroadcastSnapshot(kind string, snap entity.SessionSnapshot)
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub    message.Subscriber
	topicName string
	sink      ISnapshotSink
	logger    logger.ILogger
}

func NewConsumerService(pubSub message.Subscriber, topicName string, sink ISnapshotSink, log logger.ILogger) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		sink:      sink,
		logger:    log,
	}
}

// Consume subscribes to the snapshot topic and forwards every message to the
// sink until ctx is cancelled.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	var payload dto.SessionEventMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("SnapshotConsumer", "Failed to unmarshal snapshot", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err,
		})
		// a malformed payload will not improve on redelivery
		msg.Ack()
		return
	}

	cs.sink.BroadcastSnapshot(payload.Type, payload.Snapshot)
	msg.Ack()
}

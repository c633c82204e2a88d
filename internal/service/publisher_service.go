package service

import (
	"context"
	"encoding/json"
	"fmt"

	"ragchat-client/internal/dto"
	"ragchat-client/internal/entity"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// ISnapshotPublisher hands post-action snapshots to whoever renders them.
type ISnapshotPublisher interface {
	Publish(ctx context.Context, kind string, snap entity.SessionSnapshot) error
}

type publisherService struct {
	pubSub    message.Publisher
	topicName string
}

func NewPublisherService(pubSub message.Publisher, topicName string) ISnapshotPublisher {
	return &publisherService{
		pubSub:    pubSub,
		topicName: topicName,
	}
}

func (p *publisherService) Publish(ctx context.Context, kind string, snap entity.SessionSnapshot) error {
	payload, err := json.Marshal(dto.SessionEventMessage{Type: kind, Snapshot: snap})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := p.pubSub.Publish(p.topicName, msg); err != nil {
		return fmt.Errorf("publish snapshot %d: %w", snap.Version, err)
	}
	return nil
}

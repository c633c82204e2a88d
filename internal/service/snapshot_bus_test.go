package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"ragchat-client/internal/constant"
	"ragchat-client/internal/entity"
	"ragchat-client/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu    sync.Mutex
	items []recordedSnapshot
}

func (s *recordingSink) BroadcastSnapshot(kind string, snap entity.SessionSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, recordedSnapshot{kind: kind, snap: snap})
}

func (s *recordingSink) all() []recordedSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedSnapshot(nil), s.items...)
}

func TestSnapshotBus_PublishReachesSink(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	defer pubSub.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &recordingSink{}
	require.NoError(t, NewConsumerService(pubSub, constant.SnapshotTopic, sink, logger.NewNopLogger()).Consume(ctx))
	pub := NewPublisherService(pubSub, constant.SnapshotTopic)

	require.NoError(t, pub.Publish(ctx, constant.SessionEventSnapshot, entity.SessionSnapshot{Version: 1, Draft: "a"}))
	require.NoError(t, pub.Publish(ctx, constant.SessionEventReset, entity.SessionSnapshot{Version: 2}))

	require.Eventually(t, func() bool { return len(sink.all()) == 2 }, time.Second, 5*time.Millisecond)
	got := sink.all()
	assert.Equal(t, constant.SessionEventSnapshot, got[0].kind)
	assert.Equal(t, "a", got[0].snap.Draft)
	assert.Equal(t, constant.SessionEventReset, got[1].kind)
	assert.Equal(t, uint64(2), got[1].snap.Version)
}

func TestSnapshotBus_MalformedPayloadIsSkipped(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	defer pubSub.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &recordingSink{}
	require.NoError(t, NewConsumerService(pubSub, constant.SnapshotTopic, sink, logger.NewNopLogger()).Consume(ctx))

	require.NoError(t, pubSub.Publish(constant.SnapshotTopic, message.NewMessage(watermill.NewUUID(), []byte("not json"))))
	require.NoError(t, NewPublisherService(pubSub, constant.SnapshotTopic).Publish(ctx, constant.SessionEventSnapshot, entity.SessionSnapshot{Version: 3}))

	require.Eventually(t, func() bool { return len(sink.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(3), sink.all()[0].snap.Version)
}

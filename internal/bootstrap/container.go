package bootstrap

import (
	"context"
	"fmt"

	"ragchat-client/internal/config"
	"ragchat-client/internal/constant"
	"ragchat-client/internal/controller"
	"ragchat-client/internal/handler"
	"ragchat-client/internal/pkg/logger"
	"ragchat-client/internal/repository/contract"
	"ragchat-client/internal/repository/implementation"
	"ragchat-client/internal/repository/memory"
	"ragchat-client/internal/service"
	"ragchat-client/internal/websocket"
	"ragchat-client/pkg/events"
	pktNats "ragchat-client/pkg/nats"
	"ragchat-client/pkg/ragapi"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	Logger logger.ILogger

	SessionCore       service.ISessionCore
	SessionController controller.ISessionController

	// Snapshot stream
	ConsumerService service.IConsumerService
	SnapshotHandler *handler.SnapshotHandler
	WebSocketHub    *websocket.Hub

	natsSub *pktNats.Subscriber
	closers []func()
}

func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	wsLogger := logger.NewIsolatedLogger(cfg.App.BridgeLogFilePath)
	c := &Container{Logger: sysLogger}

	credentialRepo, closeRepo, err := newCredentialRepository(cfg.Storage, sysLogger)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, closeRepo)

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { pubSub.Close() })

	// 2.5 Cross-process session events, optional
	var eventPublisher service.IEventPublisher
	if cfg.Events.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.Events.NatsURL)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
		} else {
			eventPublisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
		natsSub, err := pktNats.NewSubscriber(cfg.Events.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to connect to NATS Subscriber", map[string]interface{}{"error": err.Error()})
		} else {
			c.natsSub = natsSub
			c.closers = append(c.closers, natsSub.Close)
		}
	}

	// 3. Services
	apiClient := ragapi.NewClient(cfg.API.BaseURL, cfg.API.RequestTimeout, sysLogger)
	authManager := service.NewAuthSessionManager(credentialRepo, sysLogger)
	publisherService := service.NewPublisherService(pubSub, constant.SnapshotTopic)
	c.SessionCore = service.NewSessionCore(authManager, apiClient, publisherService, eventPublisher, sysLogger)

	// WebSocket Hub
	c.WebSocketHub = websocket.NewHub(wsLogger)
	c.ConsumerService = service.NewConsumerService(pubSub, constant.SnapshotTopic, c.WebSocketHub, wsLogger)

	// 4. Controllers
	c.SessionController = controller.NewSessionController(c.SessionCore, sysLogger)
	c.SnapshotHandler = handler.NewSnapshotHandler(c.SessionCore, c.WebSocketHub, wsLogger)

	return c, nil
}

// Start runs the background workers and the initial session load. A failed
// load is not fatal; the renderer sees the notice.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)

	if err := c.ConsumerService.Consume(ctx); err != nil {
		return fmt.Errorf("start snapshot consumer: %w", err)
	}

	if c.natsSub != nil {
		err := c.natsSub.Subscribe(events.SessionResetType, func(ctx context.Context, evt events.Event) error {
			c.SessionCore.ResetFromRemote(ctx, events.Origin(evt))
			return nil
		})
		if err != nil {
			c.Logger.Warn("Bootstrap", "Session reset events disabled", map[string]interface{}{"error": err.Error()})
		}
	}

	if err := c.SessionCore.Start(ctx); err != nil {
		c.Logger.Warn("Bootstrap", "Initial session load failed", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

// Close stops the core first so no snapshot is published into a closed bus.
func (c *Container) Close() {
	c.SessionCore.Close()
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.Logger.Sync()
}

func newCredentialRepository(cfg config.StorageConfig, log logger.ILogger) (contract.ICredentialRepository, func(), error) {
	switch cfg.CredentialBackend {
	case config.CredentialBackendMemory:
		log.Warn("Bootstrap", "Credentials are kept in memory and lost on exit", nil)
		return memory.NewCredentialRepository(), func() {}, nil

	case config.CredentialBackendRedis:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Warn("Bootstrap", "Failed to parse Redis URL, using it as an address", map[string]interface{}{"error": err.Error()})
			opt = &redis.Options{Addr: cfg.RedisURL}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Warn("Bootstrap", "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
		}
		return implementation.NewRedisCredentialRepository(rdb, cfg.RedisKeyPrefix), func() { rdb.Close() }, nil

	case config.CredentialBackendFile:
		return implementation.NewFileCredentialRepository(cfg.CredentialFile), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown credential backend %q", cfg.CredentialBackend)
}

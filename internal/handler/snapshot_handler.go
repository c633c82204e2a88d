package handler

import (
	"ragchat-client/internal/constant"
	"ragchat-client/internal/pkg/logger"
	"ragchat-client/internal/service"
	internalWS "ragchat-client/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SnapshotHandler streams session snapshots to renderers over a websocket.
type SnapshotHandler struct {
	core   service.ISessionCore
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewSnapshotHandler(core service.ISessionCore, hub *internalWS.Hub, log logger.ILogger) *SnapshotHandler {
	return &SnapshotHandler{
		core:   core,
		hub:    hub,
		logger: log,
	}
}

// ServeWs upgrades the connection. The first frame is the current snapshot,
// so a renderer never waits for the next action to draw.
func (h *SnapshotHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		initial, err := internalWS.EncodeFrame(constant.SessionEventSnapshot, h.core.Snapshot())
		if err != nil {
			h.logger.Error("SnapshotHandler", "Failed to encode initial snapshot", map[string]interface{}{"error": err})
			initial = nil
		}
		h.logger.Info("SnapshotHandler", "Starting WebSocket session", map[string]interface{}{"remote": conn.RemoteAddr().String()})
		internalWS.ServeWs(h.hub, conn, initial)
		h.logger.Info("SnapshotHandler", "WebSocket session ended", nil)
	})(c)
}

func (h *SnapshotHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeWs)
}

package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs registers a new client, queues initial as its first frame and pumps
// until the peer goes away.
func ServeWs(hub *Hub, conn *websocket.Conn, initial []byte) {
	client := &Client{Hub: hub, Conn: conn, Id: uuid.New(), Send: make(chan []byte, sendBuffer)}
	if initial != nil {
		client.Send <- initial
	}
	if !hub.Register(client) {
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump()
}

package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs runs one upgraded connection: registers it with the manager,
// starts the write pump and blocks on the read pump until the connection
// dies.
func ServeWs(manager *Manager, conn *websocket.Conn, userID int64) {
	client := newClient(manager, conn, userID)
	manager.Connect(userID, client)

	go client.writePump()
	client.readPump()
}

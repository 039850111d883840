package websocket

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBufferSize = 256
)

// Client wraps one fiber websocket connection and implements Transport.
// Writes go through a buffered channel drained by writePump; a full buffer
// counts as a dead transport.
type Client struct {
	manager *Manager
	conn    *websocket.Conn
	userID  int64

	send      chan []byte
	closeOnce sync.Once
	closed    chan struct{}
}

func newClient(manager *Manager, conn *websocket.Conn, userID int64) *Client {
	return &Client{
		manager: manager,
		conn:    conn,
		userID:  userID,
		send:    make(chan []byte, sendBufferSize),
		closed:  make(chan struct{}),
	}
}

// Send implements Transport. It never blocks: a receiver that cannot keep
// up is disconnected instead of stalling the generation task.
func (c *Client) Send(data []byte) error {
	select {
	case <-c.closed:
		return ErrTransportClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.Close()
		return ErrTransportClosed
	}
}

// Close implements Transport.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
	return nil
}

// readPump pumps inbound frames to the manager. It runs in the connection
// handler goroutine and exits on any read error.
func (c *Client) readPump() {
	defer func() {
		c.manager.Disconnect(c.userID, c)
		c.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.manager.logger.Warn("Client", "unexpected close", map[string]interface{}{
					"user_id": c.userID,
					"error":   err.Error(),
				})
			}
			break
		}
		c.manager.HandleInbound(c.userID, data)
	}
}

// writePump drains the send buffer to the connection and keeps the
// liveness probe going.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.closed:
			return
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

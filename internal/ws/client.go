package ws

import (
	"log"

	"github.com/gorilla/websocket"
)

// Client is one connected socket. RoomID/UserID/UserName are cached at
// join time so a best-effort leave can be replayed on abrupt
// disconnect; before any join they are empty and no cleanup happens.
type Client struct {
	ConnID   string
	UserID   string
	UserName string
	RoomID   string
	Send     chan []byte
	Conn     *websocket.Conn
}

// writePump drains the Send channel onto the socket. It exits when the
// hub closes the channel on unregister.
func (c *Client) writePump() {
	defer c.Conn.Close()
	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("[WS] Write error for client %s: %v", c.ConnID, err)
			return
		}
	}
}

package server

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hersh/tetriscore/internal/protocol"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client is the server side of one websocket connection.
type client struct {
	id     string
	ws     *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
	once   sync.Once

	// Latest snapshot from this client
	mu       sync.Mutex
	snapshot *protocol.BoardSnapshotPayload
}

func newClient(id string, ws *websocket.Conn) *client {
	return &client{
		id:     id,
		ws:     ws,
		sendCh: make(chan []byte, 256),
		done:   make(chan struct{}),
	}
}

// send encodes a message and queues it. Messages to a full or closed client
// are dropped.
func (c *client) send(t protocol.MessageType, payload any) {
	data, err := protocol.Encode(t, payload)
	if err != nil {
		log.Printf("marshal error for player %s: %v", c.id, err)
		return
	}
	select {
	case <-c.done:
	case c.sendCh <- data:
	default:
		log.Printf("send channel full for player %s, dropping %s", c.id, t)
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *client) setSnapshot(s *protocol.BoardSnapshotPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = s
}

func (c *client) latest() *protocol.BoardSnapshotPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// writePump sends queued messages and keeps the connection alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.sendCh:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// readPump reads messages until the connection fails and hands each one to
// dispatch.
func (c *client) readPump(dispatch func(protocol.Incoming)) {
	defer c.ws.Close()

	c.ws.SetReadLimit(protocol.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("read error for %s: %v", c.id, err)
			}
			return
		}

		in, err := protocol.Parse(message)
		if err != nil {
			log.Printf("unmarshal error from %s: %v", c.id, err)
			continue
		}
		dispatch(in)
	}
}

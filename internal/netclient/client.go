package netclient

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/hersh/tetriscore/internal/protocol"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
)

// ServerMsg is a tea.Msg that wraps an incoming server message.
type ServerMsg struct {
	Type protocol.MessageType
	Raw  json.RawMessage
}

// Decode unmarshals the message payload into target.
func (m ServerMsg) Decode(target any) error {
	return protocol.Incoming{Type: m.Type, Payload: m.Raw}.Decode(target)
}

// ConnectedMsg is sent when the client connects and receives its PlayerID.
type ConnectedMsg struct {
	PlayerID string
}

// DisconnectedMsg is sent when the WebSocket connection is lost.
type DisconnectedMsg struct {
	Err error
}

// Program receives the client's messages. *tea.Program satisfies it.
type Program interface {
	Send(msg tea.Msg)
}

// Client manages the WebSocket connection to the game server.
type Client struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	sendCh  chan []byte
	program Program
	done    chan struct{}
	closed  bool
}

// New creates a Client connected to the given server URL.
func New(serverURL string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(serverURL, nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		conn:   conn,
		sendCh: make(chan []byte, 256),
		done:   make(chan struct{}),
	}

	return c, nil
}

// SetProgram sets the program the client forwards server messages to.
func (c *Client) SetProgram(p Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.program = p
}

// Start launches the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// Send encodes and queues a message to the server.
func (c *Client) Send(t protocol.MessageType, payload any) {
	data, err := protocol.Encode(t, payload)
	if err != nil {
		log.Printf("client marshal error: %v", err)
		return
	}
	select {
	case <-c.done:
	case c.sendCh <- data:
	default:
		log.Printf("client send channel full, dropping %s", t)
	}
}

// Close shuts down the client connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.conn.Close()
}

func (c *Client) deliver(msg tea.Msg) {
	c.mu.Lock()
	p := c.program
	c.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// readPump reads messages from the WebSocket and sends them to the program.
func (c *Client) readPump() {
	var readErr error
	defer func() {
		c.deliver(DisconnectedMsg{Err: readErr})
	}()

	c.conn.SetReadLimit(protocol.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("readPump error: %v", err)
				readErr = err
			}
			return
		}

		in, err := protocol.Parse(message)
		if err != nil {
			log.Printf("client unmarshal error: %v", err)
			continue
		}

		// Dispatch special messages vs. generic ServerMsg
		switch in.Type {
		case protocol.MsgAssignID:
			var payload protocol.AssignIDPayload
			if in.Decode(&payload) == nil {
				c.deliver(ConnectedMsg{PlayerID: payload.PlayerID})
			}
		default:
			c.deliver(ServerMsg{Type: in.Type, Raw: in.Payload})
		}
	}
}

// writePump writes messages from sendCh to the WebSocket.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.sendCh:
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteMessage(websocket.TextMessage, msg)
			c.mu.Unlock()
			if err != nil {
				return
			}
		case <-ticker.C:
			c.mu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()
			if err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

package hub

import (
	"errors"
	"sync/atomic"
	"time"

	log "bookingserver/cloudlog"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Chat messages are short; anything bigger is not a client of ours.
	maxMessageSize = 16 * 1024
)

var errClientStopped = errors.New("client has been stopped by its hub")

// conn is the part of *websocket.Conn the pumps use.
type conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	userID string

	conn conn

	// Buffered channel of outbound messages. Only the hub closes it.
	send chan *Message

	// The hub's inbound channel.
	toHub chan<- *Message

	// Send self through this channel to leave the hub.
	unregister chan<- *Client

	// Closed by the hub once it stops listening; nothing may be sent to it afterwards.
	stopCh <-chan struct{}

	closed atomic.Bool
}

// NewClient returns a client for userID. It does nothing until a hub attaches and starts it.
func NewClient(userID string, c conn) *Client {
	return &Client{userID: userID, conn: c, send: make(chan *Message, 64)}
}

// IsClosed returns true once either pump has exited.
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}

// readPump pumps messages from the websocket connection to the hub. It is the only reader of
// the connection.
func (c *Client) readPump() {
	defer func() {
		c.leave()
		c.conn.Close()
		c.closed.Store(true)
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		var message Message
		if err := c.conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket of %s closed: %v", c.userID, err)
			}
			return
		}
		message.client = c
		if err := c.toBackend(&message); err != nil {
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection. It is the only writer of
// the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.closed.Store(true)
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
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

// Start begins the read and write goroutines.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *Client) toBackend(message *Message) error {
	// stopCh is checked first so a stopped hub is never sent to.
	select {
	case <-c.stopCh:
		return errClientStopped
	default:
	}
	select {
	case <-c.stopCh:
		return errClientStopped
	case c.toHub <- message:
		return nil
	}
}

func (c *Client) leave() {
	select {
	case <-c.stopCh:
	case c.unregister <- c:
	}
}

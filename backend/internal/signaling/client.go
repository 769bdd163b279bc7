package signaling

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong frame from the peer.
	pongWait = 60 * time.Second

	// Send ping frames with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// DefaultMaxMessageSize is enough for SDP offers with many candidates.
	DefaultMaxMessageSize = 64 * 1024

	DefaultSendQueueSize = 256

	// Time allowed to write the close frame once the connection is terminated.
	closeWait = time.Second
)

var (
	ErrConnClosed = errors.New("connection closed")
	ErrQueueFull  = errors.New("send queue full")
)

// Conn is the transport a Peer talks through.
type Conn interface {
	// Send queues data without blocking. It returns ErrConnClosed or
	// ErrQueueFull when the message was dropped.
	Send(data []byte) error

	// Terminate closes the connection without blocking. Calling it twice
	// is a no-op.
	Terminate()
}

// Client is a Conn backed by a websocket connection.
type Client struct {
	conn *websocket.Conn

	// send is drained by WritePump. It is never closed; done signals the end.
	send chan []byte
	done chan struct{}

	maxMessageSize int64
	closeOnce      sync.Once
}

// NewClient wraps an upgraded websocket connection.
func NewClient(conn *websocket.Conn, maxMessageSize int64, queueSize int) *Client {
	if maxMessageSize <= 0 {
		maxMessageSize = DefaultMaxMessageSize
	}
	if queueSize <= 0 {
		queueSize = DefaultSendQueueSize
	}
	return &Client{
		conn:           conn,
		send:           make(chan []byte, queueSize),
		done:           make(chan struct{}),
		maxMessageSize: maxMessageSize,
	}
}

func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrQueueFull
	}
}

// Terminate marks the connection done. WritePump sends the close frame
// and closes the socket, so callers holding a room lock never wait on the
// network.
func (c *Client) Terminate() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Done is closed once the connection is terminated.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// ReadPump pumps messages from the websocket connection to the router.
//
// The application runs ReadPump in a per-connection goroutine. It returns
// when the connection fails or is terminated, after telling the router the
// peer is gone.
func (c *Client) ReadPump(r *Router, p *Peer) {
	defer func() {
		r.Disconnect(p)
		c.Terminate()
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				r.HandleError(p, err)
			}
			return
		}
		r.HandleMessage(p, data)
	}
}

// WritePump pumps queued messages to the websocket connection and keeps
// the transport alive with ping frames.
//
// There is at most one writer per connection: all data writes happen here.
// WritePump closes the socket when it returns, which also ends ReadPump.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(closeWait),
			)
			return

		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

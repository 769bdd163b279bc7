package signaling

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/BioHazard786/Keydrop/cli/internal/dns"
	"github.com/BioHazard786/Keydrop/cli/internal/version"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	closeWait      = time.Second
	maxMessageSize = 64 * 1024
	queueSize      = 32
)

// Client owns the websocket to the signaling server. Server pings are
// answered with pong automatically and never reach Incoming.
type Client struct {
	conn     *websocket.Conn
	incoming chan *Message
	outgoing chan *Message
	done     chan struct{}
	stopped  chan struct{}

	closeOnce sync.Once
}

// Dial connects to the signaling URL and starts the read and write pumps.
func Dial(ctx context.Context, rawURL string) (*Client, error) {
	dialer := websocket.Dialer{
		NetDialContext:   dns.Dialer(),
		HandshakeTimeout: 15 * time.Second,
		Proxy:            http.ProxyFromEnvironment,
	}

	header := http.Header{}
	header.Set("User-Agent", "keydrop-cli/"+version.Version)

	conn, resp, err := dialer.DialContext(ctx, rawURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect: %w (status %s)", err, resp.Status)
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)

	c := &Client{
		conn:     conn,
		incoming: make(chan *Message, queueSize),
		outgoing: make(chan *Message, queueSize),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	go c.readPump()
	go c.writePump()

	return c, nil
}

func (c *Client) readPump() {
	defer close(c.incoming)

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("signaling read failed", "err", err)
			}
			return
		}

		if msg.Type == TypePing {
			c.Send(&Message{Type: TypePong})
			continue
		}

		select {
		case c.incoming <- &msg:
		case <-c.done:
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.stopped)
	}()

	for {
		select {
		case msg := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				slog.Debug("signaling write failed", "type", msg.Type, "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteJSON(&Message{Type: TypeDisconnect})
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send queues msg. It reports false once the client is closed.
func (c *Client) Send(msg *Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.outgoing <- msg:
		return true
	case <-c.done:
		return false
	case <-c.stopped:
		return false
	}
}

// Incoming is closed when the connection ends.
func (c *Client) Incoming() <-chan *Message {
	return c.incoming
}

// Close tells the server we are leaving, then closes the socket.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		select {
		case <-c.stopped:
		case <-time.After(closeWait):
		}
		c.conn.Close()
	})
}

package ws

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 5 * time.Second
	sendBuffer   = 16
)

var (
	// ErrSlowConsumer is returned by Send when the client's queue is full.
	ErrSlowConsumer = errors.New("websocket client is not keeping up")
	// ErrClientClosed is returned by Send after Close.
	ErrClientClosed = errors.New("websocket client closed")
)

// Client represents a websocket client connection. Messages are queued and
// written by the client's own goroutine so a stalled peer never blocks the
// hub.
type Client struct {
	conn *websocket.Conn
	log  *slog.Logger
	send chan []byte
	done chan struct{}
	once sync.Once
}

// NewClient constructs a client wrapper and starts its writer.
func NewClient(conn *websocket.Conn, logger *slog.Logger) *Client {
	c := newClient(conn, logger, sendBuffer)
	go c.writeLoop()
	return c
}

func newClient(conn *websocket.Conn, logger *slog.Logger, buffer int) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		conn: conn,
		log:  logger,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

// Send queues a message without blocking.
func (c *Client) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	default:
		c.log.Warn("websocket client dropped", "error", ErrSlowConsumer)
		return ErrSlowConsumer
	}
}

func (c *Client) writeLoop() {
	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Warn("websocket send failed", "error", err)
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Wait blocks reading (and discarding) client frames until the peer goes
// away, so control frames keep being processed.
func (c *Client) Wait() {
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

// Close terminates the connection and stops the writer.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/cardroomhq/tabled/internal/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	// Outbound buffer per connection; overflowing it drops the client.
	sendBuffer = 256
)

// ErrConnectionClosed is returned for sends on a closing connection.
var ErrConnectionClosed = websocket.ErrCloseSent

// Connection wraps one websocket client: a read pump feeding the server's
// dispatcher and a write pump draining the send buffer.
type Connection struct {
	conn   *websocket.Conn
	send   chan *Message
	logger *log.Logger
	server *Server

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu      sync.RWMutex
	tableID string
	seat    int
}

func newConnection(conn *websocket.Conn, logger *log.Logger, server *Server) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:   conn,
		send:   make(chan *Message, sendBuffer),
		logger: logger.WithPrefix("conn").With("remote", conn.RemoteAddr().String()),
		server: server,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *Connection) start() {
	go c.writePump()
	go c.readPump()
}

// Close shuts the connection down once; safe from any goroutine.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// Send queues a message without blocking. A full buffer means the client
// cannot keep up with the table's pace; it is dropped rather than allowed
// to stall anyone else.
func (c *Connection) Send(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// The send channel closed mid-select during shutdown.
			c.logger.Debug("send on closed connection", "error", r)
		}
	}()

	select {
	case <-c.ctx.Done():
		return c.ctx.Err()
	case c.send <- msg:
		return nil
	default:
		c.logger.Warn("send buffer full, dropping connection")
		metrics.BroadcastDrops.Inc()
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// setSeat binds the connection to a table seat; seat 0 is an observer.
func (c *Connection) setSeat(tableID string, seat int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableID = tableID
	c.seat = seat
}

func (c *Connection) seatAt() (string, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID, c.seat
}

func (c *Connection) readPump() {
	defer func() {
		c.server.disconnected(c)
		_ = c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("read failed", "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError("bad_request", "malformed message")
			continue
		}
		c.server.handleMessage(c, &msg)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug("write failed", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Connection) sendError(code, message string) {
	msg, err := NewMessage(MessageTypeError, ErrorData{Code: code, Message: message})
	if err != nil {
		return
	}
	_ = c.Send(msg)
}

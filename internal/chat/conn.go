package chat

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/barnir16/PawfectPal-sub000/internal/config"
)

// ErrConnClosed is returned by Send once the connection is shut down or its
// outbound buffer overflows.
var ErrConnClosed = errors.New("connection closed")

// wire is the subset of *websocket.Conn the chat layer touches. Tests
// substitute an in-memory implementation.
type wire interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// Conn is one live socket for one authenticated user scoped to one
// conversation. Outbound writes go through a buffered channel drained by a
// single write loop, so Send is safe from any goroutine and a slow client
// cannot block a broadcast. A connection is ephemeral: created on a
// successful handshake, gone on disconnect.
type Conn struct {
	ID             string
	UserID         string
	DisplayName    string
	ConversationID string

	ws   wire
	cfg  config.WSConfig
	log  zerolog.Logger
	send chan []byte
	done chan struct{}
	once sync.Once
}

// NewConn wraps an upgraded websocket for the given user and conversation.
func NewConn(ws wire, cfg config.WSConfig, userID, displayName, conversationID string, log zerolog.Logger) *Conn {
	c := &Conn{
		ID:             uuid.NewString(),
		UserID:         userID,
		DisplayName:    displayName,
		ConversationID: conversationID,
		ws:             ws,
		cfg:            cfg,
		send:           make(chan []byte, cfg.SendBuffer),
		done:           make(chan struct{}),
	}
	c.log = log.With().Str("connection_id", c.ID).Str("user_id", userID).Logger()
	return c
}

// Start applies read limits and deadlines and launches the write loop. It
// must be called exactly once, before the first Read.
func (c *Conn) Start() {
	c.ws.SetReadLimit(c.cfg.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})
	go c.writeLoop()
}

// Read blocks until the next inbound frame. Any frame refreshes the idle
// deadline, so a chatty client without pong support stays alive too.
func (c *Conn) Read() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	return data, nil
}

// Send enqueues payload for delivery. If the buffer is full the client is not
// keeping up; the connection is closed rather than letting backpressure leak
// into the broadcaster.
func (c *Conn) Send(payload []byte) error {
	// Checked first so a closed connection never reports a successful enqueue.
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case <-c.done:
		return ErrConnClosed
	case c.send <- payload:
		return nil
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return ErrConnClosed
	}
}

// Close terminates the connection once, sending a close frame with the given
// code first so well-behaved clients learn why.
func (c *Conn) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.done)
		deadline := time.Now().Add(c.cfg.WriteWait)
		_ = c.ws.SetWriteDeadline(deadline)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = c.ws.Close()
	})
}

func (c *Conn) writeLoop() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			// Flush whatever was queued before the close so acks enqueued
			// just before shutdown still reach the peer.
			for {
				select {
				case payload := <-c.send:
					_ = c.writeMessage(payload)
				default:
					return
				}
			}
		case payload := <-c.send:
			if err := c.writeMessage(payload); err != nil {
				c.log.Debug().Err(err).Msg("write failed, closing connection")
				c.Close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			if err := c.writePing(); err != nil {
				c.log.Debug().Err(err).Msg("ping failed, closing connection")
				c.Close(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		}
	}
}

func (c *Conn) writeMessage(payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *Conn) writePing() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteWait))
}

package realtime

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	// ErrSendBufferFull is returned by Offer when the connection is not keeping up.
	ErrSendBufferFull = errors.New("send buffer full")
	// ErrConnectionClosed is returned by Offer after Close.
	ErrConnectionClosed = errors.New("connection closed")
)

var connIDCounter atomic.Uint64

// Socket is the subset of *websocket.Conn the pumps use.
type Socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	Close() error
}

// ConnConfig bounds a single connection.
type ConnConfig struct {
	// ReadTimeout is how long the server waits for the next client ping.
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	SendBuffer      int
	MaxMessageBytes int64
}

func (c ConnConfig) withDefaults() ConnConfig {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 4096
	}
	return c
}

// Conn is one user's live socket with its bounded outbound queue.
type Conn struct {
	id     uint64
	userID string
	socket Socket
	cfg    ConnConfig
	logger *zap.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewConn wraps an upgraded socket.
func NewConn(userID string, socket Socket, cfg ConnConfig, logger *zap.Logger) *Conn {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	id := connIDCounter.Add(1)
	return &Conn{
		id:     id,
		userID: userID,
		socket: socket,
		cfg:    cfg,
		logger: logger.With(zap.String("user_id", userID), zap.Uint64("conn_id", id)),
		send:   make(chan []byte, cfg.SendBuffer),
		done:   make(chan struct{}),
	}
}

// ID returns the process-unique connection id.
func (c *Conn) ID() uint64 { return c.id }

// UserID returns the owning user.
func (c *Conn) UserID() string { return c.userID }

// Done is closed once the connection has been closed.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Offer queues a frame for the write pump without blocking.
func (c *Conn) Offer(frame []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}

// Close stops both pumps and closes the socket. Safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.socket.Close()
	})
}

// Run starts the write pump and runs the read pump on the calling goroutine.
// It returns once the connection is closed for any reason.
func (c *Conn) Run() {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump()
	}()
	c.readPump()
	c.Close()
	<-writerDone
}

func (c *Conn) readPump() {
	c.socket.SetReadLimit(c.cfg.MaxMessageBytes)
	if err := c.socket.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
		c.logger.Debug("set read deadline failed", zap.Error(err))
		return
	}
	for {
		_, data, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("socket read ended", zap.Error(err))
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug("ignoring malformed client frame", zap.Error(err))
			continue
		}
		if msg.Type != MessageTypePing {
			continue
		}
		if err := c.socket.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
			return
		}
		if err := c.Offer(pongFrame); err != nil {
			c.logger.Debug("pong not queued", zap.Error(err))
			return
		}
	}
}

func (c *Conn) writePump() {
	defer c.Close()
	for {
		select {
		case <-c.done:
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			_ = c.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case frame := <-c.send:
			if err := c.socket.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
				return
			}
			if err := c.socket.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("socket write failed", zap.Error(err))
				return
			}
		}
	}
}

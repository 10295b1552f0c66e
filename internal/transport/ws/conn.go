package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/cwrk-planet/chat-service/internal/events"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var errConnClosed = errors.New("ws: connection closed")

// wsConn: одно websocket-соединение пользователя, реализует registry.Conn.
type wsConn struct {
	conn         *websocket.Conn
	id           string
	userID       string
	writeTimeout time.Duration

	sendMu    chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func newWsConn(c *websocket.Conn, userID string, writeTimeout time.Duration) *wsConn {
	return &wsConn{
		conn:         c,
		id:           uuid.NewString(),
		userID:       userID,
		writeTimeout: writeTimeout,
		sendMu:       make(chan struct{}, 1),
		closed:       make(chan struct{}),
	}
}

func (c *wsConn) ID() string     { return c.id }
func (c *wsConn) UserID() string { return c.userID }

// Send сериализует запись: gorilla не допускает параллельных писателей.
func (c *wsConn) Send(ev events.Event) error {
	select {
	case <-c.closed:
		return errConnClosed
	case c.sendMu <- struct{}{}:
	}
	defer func() { <-c.sendMu }()

	select {
	case <-c.closed:
		return errConnClosed
	default:
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteJSON(ev)
}

func (c *wsConn) ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
}

// Close можно звать из нескольких горутин: writeLoop, ServeHTTP, CloseAll.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

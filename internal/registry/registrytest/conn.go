// Package registrytest содержит записывающее соединение для тестов.
package registrytest

import (
	"errors"
	"sync"

	"github.com/cwrk-planet/chat-service/internal/events"
)

var ErrClosed = errors.New("registrytest: connection closed")

// Conn запоминает все отправленные события.
type Conn struct {
	ConnID string
	User   string

	mu     sync.Mutex
	events []events.Event
	closed bool
}

func NewConn(userID, connID string) *Conn {
	return &Conn{ConnID: connID, User: userID}
}

func (c *Conn) ID() string     { return c.ConnID }
func (c *Conn) UserID() string { return c.User }

func (c *Conn) Send(ev events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.events = append(c.events, ev)
	return nil
}

// Close: последующие Send возвращают ошибку.
func (c *Conn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Conn) Events() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]events.Event, len(c.events))
	copy(out, c.events)
	return out
}

// OfType возвращает события одного типа.
func (c *Conn) OfType(typ string) []events.Event {
	var out []events.Event
	for _, ev := range c.Events() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (c *Conn) Reset() {
	c.mu.Lock()
	c.events = nil
	c.mu.Unlock()
}

// SyncExecutor выполняет задачу сразу в вызывающей горутине.
type SyncExecutor struct{}

func (SyncExecutor) TrySubmit(task func()) bool {
	task()
	return true
}

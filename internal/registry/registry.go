package registry

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/cwrk-planet/chat-service/internal/events"
	"github.com/cwrk-planet/chat-service/internal/metrics"
)

// Conn: одно живое соединение пользователя.
type Conn interface {
	ID() string
	UserID() string
	Send(ev events.Event) error
}

type Stats struct {
	Users       int `json:"users"`
	Connections int `json:"connections"`
}

// Registry хранит userID -> набор соединений. Только в памяти процесса.
type Registry struct {
	mu    sync.RWMutex
	users map[string]map[string]Conn // userID -> connID -> conn
	conns int

	metrics *metrics.Metrics
}

func New(m *metrics.Metrics) *Registry {
	return &Registry{
		users:   make(map[string]map[string]Conn),
		metrics: m,
	}
}

// Register добавляет соединение. first == true, если это первое соединение пользователя.
func (r *Registry) Register(c Conn) (first bool) {
	if c == nil || c.UserID() == "" || c.ID() == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.users[c.UserID()]
	if !ok {
		set = make(map[string]Conn)
		r.users[c.UserID()] = set
	}
	if _, dup := set[c.ID()]; dup {
		return false
	}
	set[c.ID()] = c
	r.conns++
	r.metrics.SetOccupancy(len(r.users), r.conns)

	return len(set) == 1
}

// Unregister убирает соединение. last == true, если у пользователя не осталось соединений.
func (r *Registry) Unregister(c Conn) (last bool) {
	if c == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.users[c.UserID()]
	if !ok {
		return false
	}
	if _, ok := set[c.ID()]; !ok {
		return false
	}
	delete(set, c.ID())
	r.conns--
	if len(set) == 0 {
		delete(r.users, c.UserID())
		last = true
	}
	r.metrics.SetOccupancy(len(r.users), r.conns)

	return last
}

func (r *Registry) ActiveConnections(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.users[userID]))
	for id := range r.users[userID] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.users[userID]) > 0
}

func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Stats{Users: len(r.users), Connections: r.conns}
}

// EmitToUser отправляет событие во все соединения пользователя, возвращает число доставок.
func (r *Registry) EmitToUser(userID string, ev events.Event) int {
	r.mu.RLock()
	targets := make([]Conn, 0, len(r.users[userID]))
	for _, c := range r.users[userID] {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	return r.send(targets, ev)
}

func (r *Registry) EmitToConnection(userID, connID string, ev events.Event) bool {
	r.mu.RLock()
	c, ok := r.users[userID][connID]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	return r.send([]Conn{c}, ev) == 1
}

// Broadcast: всем живым соединениям.
func (r *Registry) Broadcast(ev events.Event) int {
	r.mu.RLock()
	targets := make([]Conn, 0, r.conns)
	for _, set := range r.users {
		for _, c := range set {
			targets = append(targets, c)
		}
	}
	r.mu.RUnlock()

	return r.send(targets, ev)
}

// отправка вне блокировки: медленное соединение не держит реестр
func (r *Registry) send(targets []Conn, ev events.Event) int {
	delivered := 0
	for _, c := range targets {
		if err := c.Send(ev); err != nil {
			r.metrics.DeliveryFailed(ev.Type)
			slog.Warn("registry: send failed",
				"user", c.UserID(), "conn", c.ID(), "type", ev.Type, "err", err)
			continue
		}
		delivered++
	}
	r.metrics.Delivered(ev.Type, delivered)

	return delivered
}

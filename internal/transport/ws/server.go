package ws

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/cwrk-planet/chat-service/internal/auth"
	"github.com/cwrk-planet/chat-service/internal/events"
	"github.com/cwrk-planet/chat-service/internal/registry"

	"github.com/gorilla/websocket"
)

type TokenValidator interface {
	Validate(token string) (string, error)
}

// PresenceTracker получает события подключения и отключения.
type PresenceTracker interface {
	Connect(ctx context.Context, c registry.Conn)
	Disconnect(ctx context.Context, c registry.Conn)
}

type Config struct {
	PingInterval   time.Duration // 15s
	WriteTimeout   time.Duration // 5s
	ReadLimit      int64         // 64KiB
	AllowedOrigins []string      // пусто или "*": любой origin
}

type Server struct {
	upgrader websocket.Upgrader
	tokens   TokenValidator
	tracker  PresenceTracker
	cfg      Config

	mu    sync.Mutex
	conns map[*wsConn]struct{}
}

func NewServer(cfg Config, tokens TokenValidator, tracker PresenceTracker) *Server {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = 64 << 10
	}

	s := &Server{
		tokens:  tokens,
		tracker: tracker,
		cfg:     cfg,
		conns:   make(map[*wsConn]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// ServeHTTP: GET /ws?token=... или Authorization: Bearer ...
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = auth.BearerToken(r.Header.Get("Authorization"))
	}
	userID, err := s.tokens.Validate(token)
	if err != nil {
		slog.Debug("ws: rejected", "err", err, "remote", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		slog.Warn("ws upgrade failed", "user", userID, "err", err)
		return
	}

	c := newWsConn(conn, userID, s.cfg.WriteTimeout)
	s.track(c)
	defer s.untrack(c)

	// после Upgrade контекст запроса живёт до выхода из обработчика
	ctx := context.WithoutCancel(r.Context())

	if err := c.Send(events.ConnectionAck(userID)); err != nil {
		slog.Debug("ws send ack failed", "user", userID, "err", err)
		_ = c.Close()
		return
	}
	s.tracker.Connect(ctx, c)
	slog.Debug("ws connected", "user", userID, "conn", c.ID())

	go s.writeLoop(c)
	s.readLoop(c)

	s.tracker.Disconnect(ctx, c)
	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "user", userID, "conn", c.ID(), "err", err)
	}
	slog.Debug("ws disconnected", "user", userID, "conn", c.ID())
}

// readLoop только держит соединение живым: входящие кадры отбрасываются.
func (s *Server) readLoop(c *wsConn) {
	c.conn.SetReadLimit(s.cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingInterval))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingInterval))
	})

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingInterval))
	}
}

func (s *Server) writeLoop(c *wsConn) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.ping(); err != nil {
				_ = c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

// CloseAll рвёт все соединения, обработчики сами отработают disconnect.
func (s *Server) CloseAll() {
	s.mu.Lock()
	conns := make([]*wsConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second),
		)
		_ = c.Close()
	}
}

func (s *Server) track(c *wsConn) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(c *wsConn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.AllowedOrigins) == 0 || slices.Contains(s.cfg.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(s.cfg.AllowedOrigins, origin)
}

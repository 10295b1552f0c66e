package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Deps struct {
	Handler        *Handler
	Tokens         TokenValidator
	WS             http.Handler // nil: без websocket
	Metrics        http.Handler // nil: без /metrics
	AllowedOrigins []string
	RequestTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}
	if len(d.AllowedOrigins) == 0 {
		d.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Tracing)
	r.Use(WithRequestLoggerCtx)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	// WS endpoint, токен проверяется внутри
	if d.WS != nil {
		r.Method(http.MethodGet, "/ws", d.WS)
	}

	h := d.Handler
	r.Route("/api/chat", func(api chi.Router) {
		api.Use(AuthMiddleware(d.Tokens))
		api.Use(middleware.Timeout(d.RequestTimeout))

		api.Route("/messages", func(m chi.Router) {
			m.Post("/direct", h.SendDirect)
			m.Post("/direct/by-username", h.SendDirectByUsername)
			m.Post("/group", h.SendGroup)
			m.Post("/mark-read", h.MarkRead)
			m.Get("/direct/{otherUserId}", h.DirectHistory)
			m.Get("/group/{groupId}", h.GroupHistory)
		})

		api.Get("/direct/partners", h.Partners)
		api.Get("/direct/unread-counts", h.DirectUnreadCounts)

		api.Route("/groups", func(g chi.Router) {
			g.Get("/", h.ListGroups)
			g.Post("/", h.CreateGroup)
			g.Get("/unread-counts", h.GroupUnreadCounts)

			g.Route("/{groupId}", func(gr chi.Router) {
				gr.Put("/", h.RenameGroup)
				gr.Get("/members", h.GroupMembers)
				gr.Post("/members", h.AddMember)
				gr.Post("/members/by-username", h.AddMemberByUsername)
				gr.Post("/leave", h.LeaveGroup)
				gr.Post("/promote", h.PromoteMember)
			})
		})

		api.Get("/presence", h.ListPresence)
		api.Put("/me/presence", h.UpdatePresence)

		api.Route("/users", func(u chi.Router) {
			u.Get("/", h.ListUsers)
			u.Get("/search", h.SearchUsers)
			u.Get("/{userId}", h.GetUser)
		})
	})

	return r
}

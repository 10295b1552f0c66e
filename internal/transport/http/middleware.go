package http

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cwrk-planet/chat-service/internal/auth"
	"github.com/cwrk-planet/chat-service/pkg/logger"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/cwrk-planet/chat-service/internal/transport/http"

// TokenValidator проверяет токен и возвращает id пользователя.
type TokenValidator interface {
	Validate(token string) (string, error)
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

// Hijack нужен websocket-апгрейду
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	if w.status == 0 {
		w.status = http.StatusSwitchingProtocols
	}
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Tracing открывает серверный спан на запрос.
func Tracing(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger пишет одну строку на запрос, уровень зависит от статуса.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}

		next.ServeHTTP(sw, r)

		level := slog.LevelInfo
		switch {
		case sw.status >= 500:
			level = slog.LevelError
		case sw.status >= 400:
			level = slog.LevelWarn
		}

		logger.FromContext(r.Context()).LogAttrs(
			r.Context(),
			level,
			"http_request",
			slog.Int("status", sw.status),
			slog.Int64("bytes", sw.bytes),
			slog.Duration("duration", time.Since(start)),
			slog.String("remote_ip", r.RemoteAddr),
			slog.String("user_agent", r.UserAgent()),
		)
	})
}

// WithRequestLoggerCtx кладёт логгер запроса в контекст
func WithRequestLoggerCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := logger.L().With(
			slog.String("req_id", middleware.GetReqID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("method", r.Method),
		)
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), l)))
	})
}

// AuthMiddleware требует Authorization: Bearer <jwt> и кладёт id пользователя в контекст.
func AuthMiddleware(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := v.Validate(auth.BearerToken(r.Header.Get("Authorization")))
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: unauthorizedMessage(err)})
				return
			}

			ctx := auth.WithUserID(r.Context(), userID)
			l := logger.FromContext(ctx).With(slog.String("user_id", userID))
			next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx, l)))
		})
	}
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return "missing bearer token"
	case errors.Is(err, auth.ErrTokenExpired):
		return "token expired"
	default:
		return "invalid token"
	}
}

package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/pkg/logger"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// toHTTP маппит класс доменной ошибки в код ответа
func toHTTP(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage убирает префикс класса: "validation failed: x" -> "x"
func publicMessage(err error) string {
	msg := err.Error()
	for _, kind := range []error{domain.ErrValidation, domain.ErrForbidden, domain.ErrNotFound} {
		if errors.Is(err, kind) {
			return strings.TrimPrefix(msg, kind.Error()+": ")
		}
	}
	return msg
}

// writeError отдаёт доменные ошибки как есть, остальные логирует и прячет за 500.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := toHTTP(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("handler."+op+":", "err", err)
		writeJSON(w, status, ErrorResponse{Error: "internal server error"})
		return
	}
	writeJSON(w, status, ErrorResponse{Error: publicMessage(err)})
}

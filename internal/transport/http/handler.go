package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cwrk-planet/chat-service/internal/auth"
	"github.com/cwrk-planet/chat-service/internal/service"
	"github.com/cwrk-planet/chat-service/pkg/logger"
)

type Handler struct {
	messages *service.MessageService
	groups   *service.GroupService
	users    *service.UserService
}

func NewHandler(messages *service.MessageService, groups *service.GroupService, users *service.UserService) *Handler {
	return &Handler{
		messages: messages,
		groups:   groups,
		users:    users,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode читает JSON-тело. При ошибке ответ уже записан.
func decode(w http.ResponseWriter, r *http.Request, op string, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.FromContext(r.Context()).Warn("handler."+op+".Decode:", "err", err)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return false
	}
	return true
}

func currentUser(r *http.Request) string {
	id, _ := auth.UserIDFromCtx(r.Context())
	return id
}

// queryInt: невалидное или пустое значение даёт 0, сервис подставит дефолт
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

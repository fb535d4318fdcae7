package session

import (
	"errors"
	"net/http"

	"tgdigest_go/internal/httputil"
	"tgdigest_go/pkg/telegram/prompt"
	tgsession "tgdigest_go/pkg/telegram/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StateSource сообщает состояние сессии Telegram.
type StateSource interface {
	State() tgsession.State
}

// Input принимает данные для входа, запрошенные сессией.
type Input interface {
	Pending() string
	Supply(field, value string) error
}

type Handler struct {
	Session StateSource
	Input   Input // nil, если вход через HTTP не настроен
	Log     *zap.Logger
}

func NewHandler(s StateSource, input Input, log *zap.Logger) *Handler {
	return &Handler{Session: s, Input: input, Log: log}
}

// Status возвращает состояние сессии и поле, которого ждёт вход.
func (h *Handler) Status(c *gin.Context) {
	resp := gin.H{"state": h.Session.State().String()}
	if h.Input != nil {
		resp["pending"] = h.Input.Pending()
	}
	c.JSON(http.StatusOK, resp)
}

// SupplyInput передаёт телефон, код или пароль ожидающему входу.
func (h *Handler) SupplyInput(c *gin.Context) {
	if h.Input == nil {
		httputil.RespondError(c, http.StatusNotFound, "HTTP login is not enabled")
		return
	}
	var req struct {
		Field string `json:"field" binding:"required,oneof=phone code password"`
		Value string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "Invalid data")
		return
	}
	if err := h.Input.Supply(req.Field, req.Value); err != nil {
		if errors.Is(err, prompt.ErrNotPending) {
			httputil.RespondError(c, http.StatusConflict, "Login is not waiting for "+req.Field)
			return
		}
		h.Log.Error("ошибка передачи данных входа", zap.Error(err))
		httputil.RespondError(c, http.StatusInternalServerError, "Failed to supply input")
		return
	}
	h.Log.Info("данные для входа получены", zap.String("field", req.Field))
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

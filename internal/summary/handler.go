package summary

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"tgdigest_go/internal/httputil"
	"tgdigest_go/models"
	pipeline "tgdigest_go/pkg/summary"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Runner запускает цикл сводок.
type Runner interface {
	RunCycle(ctx context.Context) (pipeline.Report, error)
}

// Store — выборка сохранённых сводок.
type Store interface {
	GetUserByTelegramID(ctx context.Context, telegramID string) (*models.User, error)
	GetSummariesByUser(ctx context.Context, userID, limit int) ([]models.Summary, error)
}

// Handler обслуживает запуск цикла и просмотр сводок.
type Handler struct {
	Runner Runner
	Store  Store
	Log    *zap.Logger
}

func NewHandler(runner Runner, store Store, log *zap.Logger) *Handler {
	return &Handler{Runner: runner, Store: store, Log: log}
}

// Run выполняет цикл сразу и возвращает отчёт. Обрыв соединения клиента цикл не прерывает.
func (h *Handler) Run(c *gin.Context) {
	ctx := context.WithoutCancel(c.Request.Context())
	report, err := h.Runner.RunCycle(ctx)
	if errors.Is(err, pipeline.ErrCycleInProgress) {
		httputil.RespondError(c, http.StatusConflict, "summary cycle already in progress")
		return
	}
	if err != nil {
		h.Log.Error("цикл сводок не выполнен", zap.Error(err))
		httputil.RespondError(c, http.StatusInternalServerError, "summary cycle failed")
		return
	}
	c.JSON(http.StatusOK, report)
}

// List возвращает последние сводки пользователя, ?limit= ограничивает их число.
func (h *Handler) List(c *gin.Context) {
	limit := 10
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httputil.RespondError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	user, err := h.Store.GetUserByTelegramID(c.Request.Context(), c.Param("telegram_id"))
	if errors.Is(err, sql.ErrNoRows) {
		httputil.RespondError(c, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		h.Log.Error("ошибка поиска пользователя", zap.Error(err))
		httputil.RespondError(c, http.StatusInternalServerError, "DB error")
		return
	}

	summaries, err := h.Store.GetSummariesByUser(c.Request.Context(), user.ID, limit)
	if err != nil {
		h.Log.Error("ошибка выборки сводок", zap.Error(err))
		httputil.RespondError(c, http.StatusInternalServerError, "DB error")
		return
	}
	if summaries == nil {
		summaries = []models.Summary{}
	}
	c.JSON(http.StatusOK, summaries)
}

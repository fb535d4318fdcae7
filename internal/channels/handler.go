package channels

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"tgdigest_go/internal/httputil"
	"tgdigest_go/models"
	"tgdigest_go/pkg/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Store — операции хранилища над пользователями и каналами.
type Store interface {
	GetOrCreateUser(ctx context.Context, telegramID, chatID string) (*models.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID string) (*models.User, error)
	CreateChannel(ctx context.Context, ch models.Channel) (*models.Channel, error)
	GetChannelByID(ctx context.Context, id int) (*models.Channel, error)
	GetChannelsByUser(ctx context.Context, userID int) ([]models.Channel, error)
	UpdateChannelSettings(ctx context.Context, ch models.Channel) error
	DeleteChannel(ctx context.Context, id int) error
}

// Telegram — обращения к каналу через авторизованную сессию.
type Telegram interface {
	JoinChannel(ctx context.Context, identifier string) bool
	GetChannelInfo(ctx context.Context, identifier string) *models.ChannelInfo
}

type Handler struct {
	Store    Store
	Telegram Telegram // может быть nil, тогда канал только сохраняется
	Log      *zap.Logger
}

func NewHandler(store Store, tg Telegram, log *zap.Logger) *Handler {
	return &Handler{Store: store, Telegram: tg, Log: log}
}

type createRequest struct {
	TelegramID string `json:"telegram_id" binding:"required"`
	ChatID     string `json:"chat_id"`
	ChannelID  string `json:"channel_id" binding:"required"`
	Join       bool   `json:"join"`
	models.ChannelSettings
}

// Create регистрирует канал пользователя. Пользователь создаётся при первом обращении.
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "Invalid data")
		return
	}
	req.ChannelID = strings.TrimSpace(req.ChannelID)
	if req.ChatID == "" {
		// Личный чат с ботом совпадает с ID пользователя
		req.ChatID = req.TelegramID
	}
	ctx := c.Request.Context()

	ch := models.Channel{ChannelID: req.ChannelID}
	if err := req.ChannelSettings.Apply(&ch); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var info *models.ChannelInfo
	joined := false
	if h.Telegram != nil {
		if req.Join {
			joined = h.Telegram.JoinChannel(ctx, req.ChannelID)
		}
		info = h.Telegram.GetChannelInfo(ctx, req.ChannelID)
		if ch.ChannelName == "" && info != nil {
			ch.ChannelName = info.Title
		}
	}

	user, err := h.Store.GetOrCreateUser(ctx, req.TelegramID, req.ChatID)
	if err != nil {
		h.Log.Error("не удалось сохранить пользователя", zap.Error(err))
		httputil.RespondError(c, http.StatusInternalServerError, "DB error")
		return
	}
	ch.UserID = user.ID

	created, err := h.Store.CreateChannel(ctx, ch)
	if errors.Is(err, storage.ErrChannelExists) {
		httputil.RespondError(c, http.StatusConflict, "Channel already added")
		return
	}
	if err != nil {
		h.Log.Error("не удалось сохранить канал", zap.Error(err))
		httputil.RespondError(c, http.StatusInternalServerError, "DB error")
		return
	}
	h.Log.Info("канал добавлен", zap.Int("id", created.ID), zap.String("channel", created.ChannelID), zap.Int("user_id", user.ID))
	c.JSON(http.StatusCreated, gin.H{"channel": created, "info": info, "joined": joined})
}

// List возвращает каналы пользователя.
func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.Store.GetUserByTelegramID(ctx, c.Param("telegram_id"))
	if errors.Is(err, sql.ErrNoRows) {
		httputil.RespondError(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.Log.Error("ошибка поиска пользователя", zap.Error(err))
		httputil.RespondError(c, http.StatusInternalServerError, "DB error")
		return
	}
	channels, err := h.Store.GetChannelsByUser(ctx, user.ID)
	if err != nil {
		h.Log.Error("ошибка выборки каналов", zap.Error(err))
		httputil.RespondError(c, http.StatusInternalServerError, "DB error")
		return
	}
	if channels == nil {
		channels = []models.Channel{}
	}
	c.JSON(http.StatusOK, channels)
}

// Update меняет настройки канала. Незаданные поля не трогаются.
func (h *Handler) Update(c *gin.Context) {
	id, ok := httputil.IntParam(c, "id")
	if !ok {
		httputil.RespondError(c, http.StatusBadRequest, "Invalid id")
		return
	}
	var settings models.ChannelSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "Invalid data")
		return
	}
	ctx := c.Request.Context()

	ch, err := h.Store.GetChannelByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		httputil.RespondError(c, http.StatusNotFound, "Channel not found")
		return
	}
	if err != nil {
		h.Log.Error("ошибка поиска канала", zap.Error(err))
		httputil.RespondError(c, http.StatusInternalServerError, "DB error")
		return
	}
	if err := settings.Apply(ch); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Store.UpdateChannelSettings(ctx, *ch); err != nil {
		h.Log.Error("ошибка обновления канала", zap.Error(err))
		httputil.RespondError(c, http.StatusInternalServerError, "DB error")
		return
	}
	c.JSON(http.StatusOK, ch)
}

// Delete удаляет канал. Уже созданные сводки остаются.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := httputil.IntParam(c, "id")
	if !ok {
		httputil.RespondError(c, http.StatusBadRequest, "Invalid id")
		return
	}
	err := h.Store.DeleteChannel(c.Request.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		httputil.RespondError(c, http.StatusNotFound, "Channel not found")
		return
	}
	if err != nil {
		h.Log.Error("ошибка удаления канала", zap.Error(err))
		httputil.RespondError(c, http.StatusInternalServerError, "DB error")
		return
	}
	c.Status(http.StatusNoContent)
}

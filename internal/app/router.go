package app

import (
	"net/http"

	"tgdigest_go/internal/channels"
	"tgdigest_go/internal/middleware"
	sessionapi "tgdigest_go/internal/session"
	summaryapi "tgdigest_go/internal/summary"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Router собирает HTTP API. Всё, кроме /health, закрыто токеном API_TOKEN.
func (a *App) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(a.Log.Named("http")))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("", middleware.AuthRequired(a.Cfg.APIToken))
	summaryapi.SetupRoutes(api.Group("/summary"), summaryapi.NewHandler(a.Pipeline, a.DB, a.Log.Named("http")))

	var tg channels.Telegram
	if a.Session != nil {
		tg = a.Session
	}
	channels.SetupRoutes(api.Group("/channels"), channels.NewHandler(a.DB, tg, a.Log.Named("http")))

	var input sessionapi.Input
	if a.Remote != nil {
		input = a.Remote
	}
	sessionapi.SetupRoutes(api.Group("/session"), sessionapi.NewHandler(a.Session, input, a.Log.Named("http")))

	a.Log.Info("маршруты HTTP зарегистрированы", zap.Int("count", len(r.Routes())))
	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debug("запрос",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
		)
	}
}

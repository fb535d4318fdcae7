package summary

import "github.com/gin-gonic/gin"

func SetupRoutes(r *gin.RouterGroup, h *Handler) {
	r.POST("/run", h.Run)
	r.GET("/:telegram_id", h.List)
}

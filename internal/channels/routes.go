package channels

import "github.com/gin-gonic/gin"

func SetupRoutes(r *gin.RouterGroup, h *Handler) {
	r.POST("", h.Create)
	r.GET("/:telegram_id", h.List)
	r.PATCH("/:id", h.Update)
	r.DELETE("/:id", h.Delete)
}

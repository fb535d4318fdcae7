package session

import "github.com/gin-gonic/gin"

func SetupRoutes(r *gin.RouterGroup, h *Handler) {
	r.GET("", h.Status)
	r.POST("/input", h.SupplyInput)
}

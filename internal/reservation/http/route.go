package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/plot-booking-backend/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/reservations")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.POST("", h.Create)
		group.POST("/with-proof", auth.RequireRole(auth.RoleClient), h.CreateWithProof)
		group.PATCH("/:id/status", h.UpdateStatus)
		group.POST("/:id/proof", h.AttachProof)
		group.DELETE("/:id", auth.RequireRole(auth.RoleAdmin), h.Delete)
	}
}

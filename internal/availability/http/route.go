package http

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the public browsing routes.
func RegisterRoutes(g *gin.RouterGroup, h *Handler) {
	// === Public Routes ===
	g.GET("/graves", h.ListGraves)
	g.GET("/columbarium/slots", h.ListColumbarium)
	g.GET("/resources/:kind/:id/status", h.ResourceStatus)
}

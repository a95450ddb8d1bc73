package http

import "github.com/gin-gonic/gin"

// RegisterRoutes registers proof artifact routes. Uploads go through the
// reservation endpoints, so only reads live here.
func RegisterRoutes(r gin.IRouter, handler *Handler, authMiddleware gin.HandlerFunc) {
	files := r.Group("/files", authMiddleware)
	{
		files.GET("/:id", handler.ServeFile)
		files.GET("/:id/info", handler.GetInfo)
		files.GET("/:id/thumbnail", handler.ServeThumbnail)
	}
}

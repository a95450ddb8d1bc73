package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/plot-booking-backend/internal/auth"
	"github.com/nekogravitycat/plot-booking-backend/internal/file"
	"github.com/nekogravitycat/plot-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/plot-booking-backend/internal/pkg/response"
)

type Handler struct {
	fileService file.Service
}

func NewHandler(fileService file.Service) *Handler {
	return &Handler{
		fileService: fileService,
	}
}

// authorize allows the uploader and park staff to read an artifact.
func (h *Handler) authorize(c *gin.Context, f *file.File) bool {
	actor := auth.GetActor(c)
	return actor.Role.IsStaff() || f.UserID == actor.UserID
}

// GetInfo returns an artifact's metadata.
func (h *Handler) GetInfo(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file ID"})
		return
	}

	f, err := h.fileService.Get(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !h.authorize(c, f) {
		response.Error(c, file.ErrAccessDenied)
		return
	}

	c.JSON(http.StatusOK, NewFileResponse(f))
}

// ServeFile serves the file content by ID
func (h *Handler) ServeFile(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file ID"})
		return
	}

	stream, fileInfo, err := h.fileService.Download(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer stream.Close()

	if !h.authorize(c, fileInfo) {
		response.Error(c, file.ErrAccessDenied)
		return
	}

	c.Header("Content-Type", fileInfo.ContentType)
	c.Header("Content-Disposition", "inline; filename=\""+fileInfo.Filename+"\"")

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, stream); err != nil {
		slog.Warn("stream file failed", "file_id", uri.ID, "error", err)
	}
}

// ServeThumbnail serves the thumbnail image by file ID
func (h *Handler) ServeThumbnail(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file ID"})
		return
	}

	stream, fileInfo, err := h.fileService.DownloadThumbnail(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer stream.Close()

	if !h.authorize(c, fileInfo) {
		response.Error(c, file.ErrAccessDenied)
		return
	}

	// Thumbnails are always JPEG
	c.Header("Content-Type", "image/jpeg")
	c.Header("Content-Disposition", "inline; filename=\""+fileInfo.Filename+"_thumb.jpg\"")

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, stream); err != nil {
		slog.Warn("stream thumbnail failed", "file_id", uri.ID, "error", err)
	}
}

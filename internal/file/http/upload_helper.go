package http

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/plot-booking-backend/internal/auth"
	"github.com/nekogravitycat/plot-booking-backend/internal/file"
	"github.com/nekogravitycat/plot-booking-backend/internal/pkg/response"
)

// FileUploadConfig defines the configuration for generic file uploads
type FileUploadConfig struct {
	FormFieldName string   // The name of the form field containing the file (default: "file")
	MaxSizeBytes  int64    // The maximum file size in bytes (0 = no limit)
	AllowedTypes  []string // The list of allowed MIME types (empty = allow all)
	// AfterUpload is called once the file is stored. A non-nil result replaces the
	// default upload response. On error the file is deleted again.
	AfterUpload func(ctx context.Context, f *file.File) (any, error)
}

func (cfg FileUploadConfig) fieldName() string {
	if cfg.FormFieldName == "" {
		return "file"
	}
	return cfg.FormFieldName
}

// OpenUpload reads the multipart file described by cfg into an UploadInput.
// The caller must close the returned closer.
func OpenUpload(c *gin.Context, cfg FileUploadConfig) (file.UploadInput, io.Closer, error) {
	fileHeader, err := c.FormFile(cfg.fieldName())
	if err != nil {
		return file.UploadInput{}, nil, err
	}
	if cfg.MaxSizeBytes > 0 && fileHeader.Size > cfg.MaxSizeBytes {
		return file.UploadInput{}, nil, file.ErrTooLarge
	}
	src, err := fileHeader.Open()
	if err != nil {
		return file.UploadInput{}, nil, err
	}
	return file.UploadInput{
		Filename:     fileHeader.Filename,
		ContentType:  fileHeader.Header.Get("Content-Type"),
		Content:      src,
		UserID:       auth.GetUserID(c),
		MaxSizeBytes: cfg.MaxSizeBytes,
		AllowedTypes: cfg.AllowedTypes,
	}, src, nil
}

// HandleFileUpload is a generic reusable handler for file uploads.
// It handles file upload, optional after-upload hook, and rollback on hook failure.
func (h *Handler) HandleFileUpload(c *gin.Context, config FileUploadConfig) {
	in, closer, err := OpenUpload(c, config)
	if err != nil {
		if err == file.ErrTooLarge {
			response.Error(c, err)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": config.fieldName() + " is required"})
		return
	}
	defer closer.Close()

	f, err := h.fileService.Upload(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}

	var result any
	if config.AfterUpload != nil {
		result, err = config.AfterUpload(c.Request.Context(), f)
		if err != nil {
			// Rollback: delete file from storage and DB
			_ = h.fileService.Delete(context.WithoutCancel(c.Request.Context()), f.ID)
			response.Error(c, err)
			return
		}
	}
	if result != nil {
		c.JSON(http.StatusOK, result)
		return
	}

	var thumbURL *string
	if f.ThumbnailPath != nil {
		t := file.ThumbnailURL(f.ID)
		thumbURL = &t
	}

	c.JSON(http.StatusOK, FileUploadResponse{
		Message:      "file uploaded successfully",
		FileID:       f.ID,
		URL:          file.FileURL(f.ID),
		ThumbnailURL: thumbURL,
	})
}

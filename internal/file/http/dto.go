package http

import (
	"time"

	"github.com/nekogravitycat/plot-booking-backend/internal/file"
)

type FileUploadResponse struct {
	Message      string  `json:"message"`
	FileID       string  `json:"file_id"`
	URL          string  `json:"url"`
	ThumbnailURL *string `json:"thumbnail_url"`
}

// FileResponse describes a stored artifact without its content.
type FileResponse struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	URL          string    `json:"url"`
	ThumbnailURL *string   `json:"thumbnail_url"`
	UploadedBy   string    `json:"uploaded_by"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewFileResponse(f *file.File) FileResponse {
	resp := FileResponse{
		ID:          f.ID,
		Filename:    f.Filename,
		ContentType: f.ContentType,
		Size:        f.Size,
		URL:         file.FileURL(f.ID),
		UploadedBy:  f.UserID,
		CreatedAt:   f.CreatedAt,
	}
	if f.ThumbnailPath != nil {
		u := file.ThumbnailURL(f.ID)
		resp.ThumbnailURL = &u
	}
	return resp
}

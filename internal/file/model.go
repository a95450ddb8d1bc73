package file

import (
	"io"
	"net/http"
	"time"

	"github.com/nekogravitycat/plot-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound        = apperror.New(http.StatusNotFound, "file not found")
	ErrNoThumbnail     = apperror.New(http.StatusNotFound, "thumbnail not available for this file")
	ErrTooLarge        = apperror.New(http.StatusRequestEntityTooLarge, "file too large")
	ErrUnsupportedType = apperror.New(http.StatusUnsupportedMediaType, "unsupported file type")
	ErrEmpty           = apperror.New(http.StatusBadRequest, "file is empty")
	ErrAccessDenied    = apperror.New(http.StatusForbidden, "permission denied")
)

// ProofContentTypes are the formats accepted as proof of payment.
var ProofContentTypes = []string{"image/jpeg", "image/png", "application/pdf"}

// File represents a stored artifact, such as a proof of payment.
type File struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Filename      string    `json:"filename"`
	StoragePath   string    `json:"-"` // Internal path
	ThumbnailPath *string   `json:"-"` // Internal path
	ContentType   string    `json:"content_type"`
	Size          int64     `json:"size"`
	CreatedAt     time.Time `json:"created_at"`
}

// UploadInput describes one artifact to store.
type UploadInput struct {
	Filename     string
	ContentType  string // optional; sniffed from content when empty
	Content      io.Reader
	UserID       string
	MaxSizeBytes int64    // 0 = no limit
	AllowedTypes []string // empty = allow all
}

// FileURL returns the public URL for accessing a file by its ID.
func FileURL(id string) string {
	return "/v1/files/" + id
}

// ThumbnailURL returns the public URL for accessing a file's thumbnail by its ID.
func ThumbnailURL(id string) string {
	return "/v1/files/" + id + "/thumbnail"
}

package storage

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/disintegration/imaging"
)

// ThumbnailSize is the bounding box used for proof-of-payment previews shown to staff.
const ThumbnailSize = 320

// IsImage reports whether a MIME type is one the thumbnailer can decode.
func IsImage(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return ct == "image/jpeg" || ct == "image/jpg" || ct == "image/png"
}

// ImageProcessor handles image processing like resizing.
type ImageProcessor struct {
	quality int
}

// NewImageProcessor creates a new ImageProcessor.
func NewImageProcessor() *ImageProcessor {
	return &ImageProcessor{quality: 80}
}

// GenerateThumbnail fits the image into a maxWidth x maxHeight box, honouring the
// EXIF orientation phones put on receipt photos, and returns it as JPEG.
func (p *ImageProcessor) GenerateThumbnail(content io.Reader, maxWidth, maxHeight int) (io.Reader, error) {
	img, err := imaging.Decode(content, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var thumbnail image.Image = imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, thumbnail, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return buf, nil
}

package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/plot-booking-backend/internal/pkg/storage"
)

type Service interface {
	Upload(ctx context.Context, in UploadInput) (*File, error)
	// Delete removes the artifact and its record. Deleting a missing artifact is not an error.
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*File, error)
	Download(ctx context.Context, id string) (io.ReadCloser, *File, error)
	DownloadThumbnail(ctx context.Context, id string) (io.ReadCloser, *File, error)
	// PurgeOrphans deletes artifacts older than olderThan that no reservation references.
	PurgeOrphans(ctx context.Context, olderThan time.Duration) (int, error)
}

const purgeBatchSize = 100

type service struct {
	repo    Repository
	storage storage.Storage
	imgProc *storage.ImageProcessor
}

func NewService(repo Repository, store storage.Storage) Service {
	return &service{
		repo:    repo,
		storage: store,
		imgProc: storage.NewImageProcessor(),
	}
}

func (s *service) Upload(ctx context.Context, in UploadInput) (*File, error) {
	// Read at most one byte past the limit so oversized uploads are detected
	// without buffering them entirely.
	reader := in.Content
	if in.MaxSizeBytes > 0 {
		reader = io.LimitReader(in.Content, in.MaxSizeBytes+1)
	}
	fileBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}
	if len(fileBytes) == 0 {
		return nil, ErrEmpty
	}
	if in.MaxSizeBytes > 0 && int64(len(fileBytes)) > in.MaxSizeBytes {
		return nil, ErrTooLarge
	}

	contentType := normalizeContentType(in.ContentType, fileBytes)
	if len(in.AllowedTypes) > 0 && !slices.Contains(in.AllowedTypes, contentType) {
		return nil, ErrUnsupportedType
	}

	fileID := uuid.New().String()
	ext := strings.ToLower(filepath.Ext(in.Filename))

	// Sharding path: proofs/ab/UUID.ext
	shard := fileID[:2]
	storagePath := fmt.Sprintf("proofs/%s/%s%s", shard, fileID, ext)

	if err := s.storage.Save(ctx, storagePath, bytes.NewReader(fileBytes)); err != nil {
		return nil, fmt.Errorf("failed to save file to storage: %w", err)
	}

	var thumbnailPath *string
	if storage.IsImage(contentType) {
		thumbReader, err := s.imgProc.GenerateThumbnail(bytes.NewReader(fileBytes), storage.ThumbnailSize, storage.ThumbnailSize)
		if err != nil {
			slog.Warn("thumbnail generation failed", "file_id", fileID, "error", err)
		} else {
			tPath := fmt.Sprintf("proofs/%s/%s_thumb.jpg", shard, fileID)
			if err := s.storage.Save(ctx, tPath, thumbReader); err != nil {
				slog.Warn("thumbnail save failed", "file_id", fileID, "error", err)
			} else {
				thumbnailPath = &tPath
			}
		}
	}

	f := &File{
		ID:            fileID,
		UserID:        in.UserID,
		Filename:      filepath.Base(in.Filename),
		StoragePath:   storagePath,
		ThumbnailPath: thumbnailPath,
		ContentType:   contentType,
		Size:          int64(len(fileBytes)),
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, f); err != nil {
		// Cleanup storage if db fails
		_ = s.storage.Delete(ctx, storagePath)
		if thumbnailPath != nil {
			_ = s.storage.Delete(ctx, *thumbnailPath)
		}
		return nil, err
	}

	return f, nil
}

func normalizeContentType(declared string, content []byte) string {
	ct := declared
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(content)
	}
	if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mediaType
	}
	if ct == "image/jpg" {
		ct = "image/jpeg"
	}
	return strings.ToLower(ct)
}

func (s *service) Delete(ctx context.Context, id string) error {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	// Best effort on blobs; the record is what makes the artifact visible.
	if err := s.storage.Delete(ctx, f.StoragePath); err != nil {
		slog.Warn("failed to delete stored file", "file_id", id, "error", err)
	}
	if f.ThumbnailPath != nil {
		_ = s.storage.Delete(ctx, *f.ThumbnailPath)
	}

	return s.repo.Delete(ctx, id)
}

func (s *service) Get(ctx context.Context, id string) (*File, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Download(ctx context.Context, id string) (io.ReadCloser, *File, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	stream, err := s.storage.Get(ctx, f.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrNotFound.WithCause(err)
		}
		return nil, nil, fmt.Errorf("failed to retrieve file from storage: %w", err)
	}

	return stream, f, nil
}

func (s *service) DownloadThumbnail(ctx context.Context, id string) (io.ReadCloser, *File, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if f.ThumbnailPath == nil {
		return nil, nil, ErrNoThumbnail
	}

	stream, err := s.storage.Get(ctx, *f.ThumbnailPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrNoThumbnail.WithCause(err)
		}
		return nil, nil, fmt.Errorf("failed to retrieve thumbnail from storage: %w", err)
	}

	return stream, f, nil
}

func (s *service) PurgeOrphans(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("purge age must be positive, got %s", olderThan)
	}
	cutoff := time.Now().UTC().Add(-olderThan)

	purged := 0
	for {
		batch, err := s.repo.ListOrphaned(ctx, cutoff, purgeBatchSize)
		if err != nil {
			return purged, err
		}
		deleted := 0
		for _, f := range batch {
			if err := s.Delete(ctx, f.ID); err != nil {
				slog.Warn("purge orphaned file failed", "file_id", f.ID, "error", err)
				continue
			}
			deleted++
		}
		purged += deleted
		if len(batch) < purgeBatchSize || deleted == 0 {
			return purged, nil
		}
	}
}

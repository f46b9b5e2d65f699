package storage

import (
	"context"
	"fmt"

	"greendrake/realty/internal/config"
)

// IImageStorage stores processed images and returns their public URL.
type IImageStorage interface {
	Upload(ctx context.Context, folder, name string, data []byte, contentType string) (string, error)
}

// NewImageStorage builds the backend selected by STORAGE_BACKEND.
func NewImageStorage(ctx context.Context, cfg *config.Config) (IImageStorage, error) {
	switch cfg.StorageBackend {
	case "cloudinary":
		return NewCloudinaryStorage(cfg)
	case "s3":
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"greendrake/realty/internal/config"
)

type cloudinaryStorage struct {
	cld        *cloudinary.Cloudinary
	baseFolder string
}

// NewCloudinaryStorage creates a Cloudinary-backed image store from CLOUDINARY_URL.
func NewCloudinaryStorage(cfg *config.Config) (IImageStorage, error) {
	if cfg.CloudinaryURL == "" {
		return nil, fmt.Errorf("CLOUDINARY_URL is required for the cloudinary storage backend")
	}
	cld, err := cloudinary.NewFromURL(cfg.CloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloudinary client: %w", err)
	}
	return &cloudinaryStorage{cld: cld, baseFolder: cfg.CloudinaryFolder}, nil
}

func (s *cloudinaryStorage) Upload(ctx context.Context, folder, name string, data []byte, contentType string) (string, error) {
	target := s.baseFolder
	if folder != "" {
		target = target + "/" + folder
	}
	res, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:       target,
		PublicID:     name,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload of %s/%s failed: %w", target, name, err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary rejected %s/%s: %s", target, name, res.Error.Message)
	}
	log.Printf("Uploaded image %s to Cloudinary", res.PublicID)
	return res.SecureURL, nil
}

package services

import (
	"context"
	"errors"
	"io"
	"log"

	"storefront/internal/storage"
)

type UploadService struct {
	images storage.ImageStore
}

func NewUploadService(images storage.ImageStore) *UploadService {
	return &UploadService{images: images}
}

// UploadDesign stores a customer design image and returns its URL.
func (s *UploadService) UploadDesign(ctx context.Context, file io.Reader) (string, error) {
	return s.upload(ctx, file, storage.FolderDesigns)
}

// UploadDataURI stores a base64 data URI image.
func (s *UploadService) UploadDataURI(ctx context.Context, data string) (string, error) {
	if err := storage.ValidateDataURI(data); err != nil {
		return "", invalid("data", "%v", err)
	}
	return s.upload(ctx, data, storage.FolderDesigns)
}

func (s *UploadService) upload(ctx context.Context, file interface{}, folder string) (string, error) {
	if s.images == nil {
		return "", ErrUnavailable
	}
	url, err := s.images.Upload(ctx, file, folder)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidImage) {
			return "", invalid("image", "%v", err)
		}
		return "", upstream("upload image", err)
	}
	log.Println("[UPLOAD] [INFO] image stored in", folder)
	return url, nil
}

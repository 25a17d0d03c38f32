package storage

import (
	"context"
	"io"
)

// Object is a stored profile image.
type Object struct {
	Key      string
	Location string
}

// UploadOptions conveys upload destination metadata.
type UploadOptions struct {
	Bucket    string
	KeyPrefix string
}

// ImageUpload describes one image to store for a user.
type ImageUpload struct {
	UserID      int64
	Filename    string
	ContentType string
	Body        io.Reader
}

// Service stores profile images in remote object storage.
type Service interface {
	UploadProfileImage(ctx context.Context, img ImageUpload) (Object, error)
	DeleteObject(ctx context.Context, key string) error
}

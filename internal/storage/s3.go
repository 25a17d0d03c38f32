package storage

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type objectDeleter interface {
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Service uploads profile images to Amazon S3 (or compatible APIs).
type S3Service struct {
	client   objectDeleter
	uploader uploader
	opts     UploadOptions
	newID    func() string
}

func NewS3Service(client *s3.Client, opts UploadOptions) *S3Service {
	return &S3Service{
		client:   client,
		uploader: manager.NewUploader(client),
		opts:     opts,
		newID:    uuid.NewString,
	}
}

func (s *S3Service) UploadProfileImage(ctx context.Context, img ImageUpload) (Object, error) {
	if s.opts.Bucket == "" {
		return Object{}, fmt.Errorf("storage bucket is required")
	}

	key := profileImageKey(s.opts.KeyPrefix, img.UserID, s.newID(), img.Filename)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
		Body:   img.Body,
	}
	if img.ContentType != "" {
		input.ContentType = aws.String(img.ContentType)
	}

	out, err := s.uploader.Upload(ctx, input)
	if err != nil {
		return Object{}, fmt.Errorf("upload %s: %w", key, err)
	}

	location := out.Location
	if location == "" {
		location = fmt.Sprintf("s3://%s/%s", s.opts.Bucket, key)
	}
	return Object{Key: key, Location: location}, nil
}

func (s *S3Service) DeleteObject(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("object key is required")
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// profileImageKey builds <prefix>/<userID>/<id><ext>, keeping only the
// extension of the client supplied filename.
func profileImageKey(prefix string, userID int64, id, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) > 10 || strings.ContainsAny(ext, " /?#") {
		ext = ""
	}
	parts := make([]string, 0, 3)
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, strconv.FormatInt(userID, 10), id+ext)
	return strings.Join(parts, "/")
}

var _ Service = (*S3Service)(nil)

package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	input    *s3.PutObjectInput
	body     string
	location string
	err      error
}

func (f *fakeUploader) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.input = input
	if input.Body != nil {
		b, _ := io.ReadAll(input.Body)
		f.body = string(b)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &manager.UploadOutput{Location: f.location}, nil
}

type fakeDeleter struct {
	keys []string
}

func (f *fakeDeleter) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.keys = append(f.keys, aws.ToString(input.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func newTestService(up *fakeUploader, del *fakeDeleter) *S3Service {
	return &S3Service{
		client:   del,
		uploader: up,
		opts:     UploadOptions{Bucket: "avatars", KeyPrefix: "/profile-images/"},
		newID:    func() string { return "fixed" },
	}
}

func TestUploadProfileImage(t *testing.T) {
	up := &fakeUploader{location: "https://avatars.s3.amazonaws.com/profile-images/7/fixed.png"}
	svc := newTestService(up, &fakeDeleter{})

	obj, err := svc.UploadProfileImage(context.Background(), ImageUpload{
		UserID:      7,
		Filename:    "Me.PNG",
		ContentType: "image/png",
		Body:        strings.NewReader("png-bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, "profile-images/7/fixed.png", obj.Key)
	assert.Equal(t, up.location, obj.Location)

	assert.Equal(t, "avatars", aws.ToString(up.input.Bucket))
	assert.Equal(t, "profile-images/7/fixed.png", aws.ToString(up.input.Key))
	assert.Equal(t, "image/png", aws.ToString(up.input.ContentType))
	assert.Equal(t, "png-bytes", up.body)
}

func TestUploadProfileImage_FallbackLocation(t *testing.T) {
	svc := newTestService(&fakeUploader{}, &fakeDeleter{})

	obj, err := svc.UploadProfileImage(context.Background(), ImageUpload{UserID: 1, Filename: "a.jpg", Body: strings.NewReader("x")})
	require.NoError(t, err)
	assert.Equal(t, "s3://avatars/profile-images/1/fixed.jpg", obj.Location)
}

func TestUploadProfileImage_Errors(t *testing.T) {
	svc := newTestService(&fakeUploader{err: errors.New("denied")}, &fakeDeleter{})
	_, err := svc.UploadProfileImage(context.Background(), ImageUpload{UserID: 1, Body: strings.NewReader("x")})
	require.Error(t, err)

	svc.opts.Bucket = ""
	_, err = svc.UploadProfileImage(context.Background(), ImageUpload{UserID: 1, Body: strings.NewReader("x")})
	require.Error(t, err)
}

func TestDeleteObject(t *testing.T) {
	del := &fakeDeleter{}
	svc := newTestService(&fakeUploader{}, del)

	require.NoError(t, svc.DeleteObject(context.Background(), "profile-images/1/fixed.jpg"))
	assert.Equal(t, []string{"profile-images/1/fixed.jpg"}, del.keys)

	require.Error(t, svc.DeleteObject(context.Background(), " "))
}

func TestProfileImageKey(t *testing.T) {
	tests := []struct {
		prefix   string
		filename string
		want     string
	}{
		{"img", "photo.jpeg", "img/3/id.jpeg"},
		{"", "photo.jpeg", "3/id.jpeg"},
		{"img/", `C:\Users\me\face.GIF`, "img/3/id.gif"},
		{"img", "noext", "img/3/id"},
		{"img", "../../etc/passwd", "img/3/id"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, profileImageKey(tt.prefix, 3, "id", tt.filename), tt.filename)
	}
}

// Package media issues presigned URLs for entry media uploads backed by
// S3-compatible object storage.
package media

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrUnsupportedType is returned for content types outside the allow list.
var ErrUnsupportedType = errors.New("unsupported media content type")

var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"application/pdf": ".pdf",
}

const presignTTL = 15 * time.Minute

// Service hands out presigned PUT URLs so clients upload directly to object
// storage and the API only stores the resulting public URL.
type Service struct {
	client *minio.Client
	bucket string
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func NewService(ctx context.Context, cfg Config) (*Service, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &Service{client: client, bucket: cfg.Bucket}, nil
}

// Upload describes a presigned upload slot.
type Upload struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"`
	PublicURL string `json:"publicUrl"`
	ExpiresIn int    `json:"expiresIn"` // seconds
}

// PresignUpload returns a presigned PUT URL for one object. Objects are keyed
// under the owning user so keys never collide across accounts.
func (s *Service) PresignUpload(ctx context.Context, userID, contentType string) (Upload, error) {
	ext, ok := allowedTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return Upload{}, ErrUnsupportedType
	}

	key := path.Join(userID, uuid.NewString()+ext)
	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, presignTTL)
	if err != nil {
		return Upload{}, fmt.Errorf("presign upload: %w", err)
	}

	public := url.URL{
		Scheme: u.Scheme,
		Host:   u.Host,
		Path:   path.Join("/", s.bucket, key),
	}
	return Upload{
		UploadURL: u.String(),
		ObjectKey: key,
		PublicURL: public.String(),
		ExpiresIn: int(presignTTL.Seconds()),
	}, nil
}

// RemoveObject deletes an uploaded object, used when an entry referencing it
// is deleted.
func (s *Service) RemoveObject(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

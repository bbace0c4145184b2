// Package storage archives call-recording audio in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"bricks_crm_backend/platform/config"
)

// PresignedURLTTL is the expiration time for presigned download URLs.
const PresignedURLTTL = 15 * time.Minute

// MinIOService stores recording audio in MinIO (or any S3-compatible store).
type MinIOService struct {
	client *minio.Client
	bucket string
}

// NewMinIOService creates the audio archive client.
func NewMinIOService(cfg config.StorageConfig) (*MinIOService, error) {
	if !cfg.IsStorageEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOService{
		client: client,
		bucket: cfg.GetRecordingsBucket(),
	}, nil
}

// EnsureBucketExists creates the recordings bucket if it doesn't exist.
func (s *MinIOService) EnsureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}

	return nil
}

// UploadAudio streams one recording's audio into the bucket under objectKey.
func (s *MinIOService) UploadAudio(ctx context.Context, objectKey, contentType string, reader io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload audio %s: %w", objectKey, err)
	}
	return nil
}

// DownloadAudio opens a stored recording for reading.
// The caller is responsible for closing the returned io.ReadCloser.
func (s *MinIOService) DownloadAudio(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", objectKey, err)
	}
	return obj, nil
}

// GenerateDownloadURL creates a presigned URL for fetching a stored recording,
// for operators reviewing audio without direct bucket access.
func (s *MinIOService) GenerateDownloadURL(ctx context.Context, objectKey string) (string, time.Time, error) {
	expiresAt := time.Now().Add(PresignedURLTTL)

	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, PresignedURLTTL, url.Values{})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate presigned download URL: %w", err)
	}

	return presignedURL.String(), expiresAt, nil
}

// DeleteAudio removes a stored recording.
func (s *MinIOService) DeleteAudio(ctx context.Context, objectKey string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", objectKey, err)
	}
	return nil
}

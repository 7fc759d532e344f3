// Package storage archives rendered PDFs in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jonathan/resume-typesetter/internal/config"
)

const (
	keyPrefix    = "resumes"
	pdfMediaType = "application/pdf"
	defaultLimit = 50
)

// Object describes one archived PDF.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Archive stores PDFs under a per-user prefix of one bucket.
type Archive struct {
	client *minio.Client
	bucket string
	now    func() time.Time
}

// NewArchive connects to the configured endpoint and creates the bucket when
// it does not exist.
func NewArchive(ctx context.Context, cfg config.ArchiveConfig) (*Archive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init archive client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("make bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &Archive{client: client, bucket: cfg.Bucket, now: time.Now}, nil
}

// userPrefix returns the key prefix of every PDF archived for userID
func userPrefix(userID uuid.UUID) string {
	return path.Join(keyPrefix, userID.String()) + "/"
}

// objectKey names a PDF by render time so that listing order is chronological
func objectKey(userID uuid.UUID, at time.Time) string {
	return userPrefix(userID) + at.UTC().Format("20060102T150405Z") + "-" + uuid.NewString()[:8] + ".pdf"
}

// Store uploads pdf for userID and returns its key.
func (a *Archive) Store(ctx context.Context, userID uuid.UUID, pdf []byte) (string, error) {
	key := objectKey(userID, a.now())
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(pdf), int64(len(pdf)),
		minio.PutObjectOptions{ContentType: pdfMediaType})
	if err != nil {
		return "", fmt.Errorf("put object %q: %w", key, err)
	}
	return key, nil
}

// List returns up to limit archived PDFs of userID.
func (a *Archive) List(ctx context.Context, userID uuid.UUID, limit int) ([]Object, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	prefix := userPrefix(userID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objCh := a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	result := make([]Object, 0, limit)
	for object := range objCh {
		if object.Err != nil {
			return nil, fmt.Errorf("list objects under %q: %w", prefix, object.Err)
		}
		if !strings.HasSuffix(object.Key, ".pdf") {
			continue
		}
		result = append(result, Object{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
		})
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

// DeleteUser removes every PDF archived for userID. Missing objects are ignored.
func (a *Archive) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	prefix := userPrefix(userID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objCh := a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for object := range objCh {
		if object.Err != nil {
			return fmt.Errorf("list objects under %q: %w", prefix, object.Err)
		}
		if err := a.client.RemoveObject(ctx, a.bucket, object.Key, minio.RemoveObjectOptions{}); err != nil && !IsNoSuchKey(err) {
			return fmt.Errorf("remove object %q: %w", object.Key, err)
		}
	}
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"listing-portal/internal/config"
	"listing-portal/internal/gateway"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinIOStorage stores listing photos in one S3-compatible bucket
type MinIOStorage struct {
	client     *minio.Client
	bucket     string
	publicBase string
	logger     *zap.Logger
}

// NewMinIOStorage connects to the endpoint and makes sure the bucket exists
func NewMinIOStorage(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (*MinIOStorage, error) {
	log.Info("Initializing MinIO storage",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.Bucket),
		zap.Bool("use_ssl", cfg.UseSSL))

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", cfg.Endpoint, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		log.Info("Created bucket", zap.String("bucket", cfg.Bucket))
	}

	publicBase := cfg.PublicBaseURL
	if publicBase == "" {
		publicBase = client.EndpointURL().String()
	}

	return &MinIOStorage{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
		logger:     log,
	}, nil
}

// Bucket returns the bucket name that appears in every public URL
func (s *MinIOStorage) Bucket() string {
	return s.bucket
}

// Upload stores r under path. Existing objects are not overwritten.
func (s *MinIOStorage) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	_, statErr := s.client.StatObject(ctx, s.bucket, path, minio.StatObjectOptions{})
	if err := absentErr(path, statErr); err != nil {
		return err
	}

	info, err := s.client.PutObject(ctx, s.bucket, path, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "max-age=3600",
	})
	if err != nil {
		s.logger.Error("PutObject failed", zap.String("key", path), zap.Error(err))
		return minioErr("upload", err)
	}

	s.logger.Debug("Uploaded object",
		zap.String("key", info.Key),
		zap.String("etag", info.ETag),
		zap.Int64("size", info.Size))
	return nil
}

// PublicURL returns <public base>/<bucket>/<path>
func (s *MinIOStorage) PublicURL(path string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBase, s.bucket, path)
}

// RemoveMany deletes all paths in one batch request
func (s *MinIOStorage) RemoveMany(ctx context.Context, paths []string) error {
	objects := make(chan minio.ObjectInfo, len(paths))
	for _, p := range paths {
		objects <- minio.ObjectInfo{Key: p}
	}
	close(objects)

	var failed []minio.RemoveObjectError
	for rerr := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		s.logger.Warn("RemoveObjects failed for key", zap.String("key", rerr.ObjectName), zap.Error(rerr.Err))
		failed = append(failed, rerr)
	}
	return removeErr(failed)
}

// absentErr checks a StatObject result before upload. Only a missing key lets
// the upload proceed.
func absentErr(path string, statErr error) error {
	if statErr == nil {
		return gateway.E("upload", gateway.KindConflict, fmt.Errorf("object %s already exists", path))
	}
	if minio.ToErrorResponse(statErr).Code == "NoSuchKey" {
		return nil
	}
	return minioErr("upload", statErr)
}

// removeErr joins the per-key failures of a batch, classified by the first one
func removeErr(failed []minio.RemoveObjectError) error {
	if len(failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(failed))
	for _, f := range failed {
		errs = append(errs, fmt.Errorf("%s: %w", f.ObjectName, f.Err))
	}
	kind := gateway.KindOf(minioErr("remove objects", failed[0].Err))
	return gateway.E("remove objects", kind, errors.Join(errs...))
}

func minioErr(op string, err error) error {
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return gateway.E(op, gateway.KindNotFound, err)
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusUnauthorized:
		return gateway.E(op, gateway.KindUnauthorized, err)
	case resp.StatusCode == http.StatusBadRequest:
		return gateway.E(op, gateway.KindInvalid, err)
	case resp.StatusCode >= 500, errors.Is(err, context.DeadlineExceeded):
		return gateway.E(op, gateway.KindUnavailable, err)
	default:
		return gateway.E(op, gateway.KindInternal, err)
	}
}

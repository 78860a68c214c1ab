package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	imgproc "delivery-audit/internal/image"
	"delivery-audit/internal/logger"
	"delivery-audit/internal/raster"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewMinioClient connects and checks that the bucket exists.
func NewMinioClient(ctx context.Context, cfg MinioConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
	}
	return client, nil
}

// MinioSource downloads the delivery notes under a bucket prefix into a local
// work directory.
type MinioSource struct {
	client  *minio.Client
	bucket  string
	prefix  string
	workDir string
}

func NewMinioSource(client *minio.Client, bucket, prefix, workDir string) *MinioSource {
	return &MinioSource{client: client, bucket: bucket, prefix: prefix, workDir: workDir}
}

// Documents returns local paths in the bucket's listing order.
func (s *MinioSource) Documents(ctx context.Context) ([]string, error) {
	if err := os.MkdirAll(s.workDir, 0755); err != nil {
		return nil, fmt.Errorf("creating download directory: %w", err)
	}

	var paths []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("listing %s/%s: %w", s.bucket, s.prefix, obj.Err)
		}
		if !isListedDocument(obj.Key) {
			continue
		}
		local := localPathFor(s.workDir, obj.Key)
		if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
			return nil, fmt.Errorf("creating download directory: %w", err)
		}
		logger.DebugLog("[minioSource]: downloading %s to %s", obj.Key, local)
		if err := s.client.FGetObject(ctx, s.bucket, obj.Key, local, minio.GetObjectOptions{}); err != nil {
			return nil, fmt.Errorf("downloading %s: %w", obj.Key, err)
		}
		paths = append(paths, local)
	}
	return paths, nil
}

// MinioDebugSink uploads ROI crops for operator review.
type MinioDebugSink struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewMinioDebugSink(client *minio.Client, bucket, prefix string) *MinioDebugSink {
	return &MinioDebugSink{client: client, bucket: bucket, prefix: prefix}
}

func (s *MinioDebugSink) SaveROI(ctx context.Context, document string, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode roi: %w", err)
	}
	objectName := debugObjectName(s.prefix, document)
	_, err := s.client.PutObject(ctx, s.bucket, objectName, &buf, int64(buf.Len()), minio.PutObjectOptions{
		ContentType: "image/png",
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return nil
}

func debugObjectName(prefix, document string) string {
	return path.Join(prefix, imgproc.DebugROIName(document))
}

// isListedDocument skips ROI crops uploaded under the same prefix by an
// earlier run.
func isListedDocument(key string) bool {
	if strings.HasPrefix(path.Base(key), imgproc.DebugROIPrefix) {
		return false
	}
	return raster.IsDocument(key)
}

// localPathFor mirrors the object key under workDir so equal base names in
// different folders do not overwrite each other.
func localPathFor(workDir, key string) string {
	return filepath.Join(workDir, filepath.FromSlash(path.Clean("/"+key)))
}

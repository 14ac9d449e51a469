// Package storage archives portal documents, such as client error reports, in MinIO/S3 compatible object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Dorico-Dynamics/txova-go-core/logging"
)

// ContentTypeJSON is the content type of archived reports.
const ContentTypeJSON = "application/json"

// objectStore is the subset of the MinIO client used by Client.
type objectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Client is the storage client for MinIO/S3.
type Client struct {
	store  objectStore
	bucket string
	logger *logging.Logger
}

// Config holds the configuration for the storage client.
type Config struct {
	// Endpoint is the storage endpoint (e.g., "minio:9000").
	Endpoint string

	// AccessKey is the access key ID.
	AccessKey string

	// SecretKey is the secret access key.
	SecretKey string

	// Bucket is the archive bucket.
	Bucket string

	// UseSSL enables TLS/SSL.
	UseSSL bool

	// Region is the bucket region (optional).
	Region string
}

// NewClient creates a new storage client.
func NewClient(cfg *Config, logger *logging.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.AccessKey == "" {
		return nil, fmt.Errorf("access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("secret key is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return newClient(client, cfg.Bucket, logger), nil
}

func newClient(store objectStore, bucket string, logger *logging.Logger) *Client {
	return &Client{
		store:  store,
		bucket: bucket,
		logger: logger,
	}
}

// Upload uploads an object to storage.
func (c *Client) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}
	if reader == nil {
		return fmt.Errorf("reader is required")
	}

	opts := minio.PutObjectOptions{
		ContentType: contentType,
	}

	_, err := c.store.PutObject(ctx, c.bucket, key, reader, size, opts)
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}

	if c.logger != nil {
		c.logger.DebugContext(ctx, "object archived",
			"bucket", c.bucket,
			"key", key,
			"size", size,
		)
	}

	return nil
}

// Archive stores a JSON document under key.
func (c *Client) Archive(ctx context.Context, key string, doc []byte) error {
	return c.Upload(ctx, key, bytes.NewReader(doc), int64(len(doc)), ContentTypeJSON)
}

// Delete deletes an object from storage.
func (c *Client) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	err := c.store.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

// Exists checks if an object exists in storage.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, fmt.Errorf("key is required")
	}

	_, err := c.store.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}

	return true, nil
}

// ErrorReportKey generates the storage key for a client error report received at t.
// Reports are grouped by UTC day.
func ErrorReportKey(t time.Time, id string) string {
	return fmt.Sprintf("client-errors/%s/%s.json", t.UTC().Format("2006/01/02"), id)
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package publish uploads finished artifacts to an S3-compatible bucket.
package publish

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/pdiddy/pdb-tracker/internal/logger"
	"github.com/pdiddy/pdb-tracker/pkg/types"
)

// Object describes an uploaded artifact.
type Object struct {
	Bucket string
	Key    string
	Size   int64
	ETag   string
}

// Publisher uploads artifacts to one bucket under an optional key prefix.
type Publisher struct {
	client *minio.Client
	bucket string
	prefix string
	region string
}

// New builds a Publisher from cfg. The endpoint is host[:port] without a
// scheme; cfg.UseSSL selects https.
func New(cfg types.PublishConfig) (*Publisher, error) {
	if cfg.Endpoint == "" {
		return nil, &types.InvalidInputError{Input: "publish.endpoint", Reason: "endpoint is required"}
	}
	if strings.Contains(cfg.Endpoint, "://") {
		return nil, &types.InvalidInputError{Input: "publish.endpoint", Reason: "endpoint must not include a scheme"}
	}
	if cfg.Bucket == "" {
		return nil, &types.InvalidInputError{Input: "publish.bucket", Reason: "bucket is required"}
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}
	return &Publisher{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		region: cfg.Region,
	}, nil
}

// Publish uploads the file at localPath, creating the bucket if it does not
// exist. The object key is ObjectKey(prefix, localPath).
func (p *Publisher) Publish(ctx context.Context, localPath string) (Object, error) {
	if err := p.ensureBucket(ctx); err != nil {
		return Object{}, fmt.Errorf("ensure bucket %s: %w", p.bucket, err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return Object{}, fmt.Errorf("opening artifact: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return Object{}, fmt.Errorf("stat artifact: %w", err)
	}

	key := ObjectKey(p.prefix, localPath)
	up, err := p.client.PutObject(ctx, p.bucket, key, f, info.Size(), minio.PutObjectOptions{
		ContentType: ContentType(localPath),
	})
	if err != nil {
		return Object{}, fmt.Errorf("uploading %s: %w", key, err)
	}

	logger.FromContext(ctx).Info("artifact published",
		zap.String("bucket", p.bucket),
		zap.String("key", key),
		zap.Int64("size", info.Size()),
	)
	return Object{Bucket: p.bucket, Key: key, Size: info.Size(), ETag: up.ETag}, nil
}

func (p *Publisher) ensureBucket(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: p.region})
}

// ObjectKey joins prefix and the artifact's base name with '/'.
func ObjectKey(prefix, localPath string) string {
	name := filepath.Base(localPath)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// ContentType picks a MIME type from the artifact extension.
func ContentType(localPath string) string {
	switch strings.ToLower(filepath.Ext(localPath)) {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".parquet":
		return "application/vnd.apache.parquet"
	default:
		return "application/octet-stream"
	}
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config configures the object-store metadata backend. Schema
// documents live in a shared bucket so every API replica serves the
// same descriptions.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Prefix          string
	DefaultName     string
}

type objectClient interface {
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// ObjectStore serves metadata documents from an S3 bucket.
type ObjectStore struct {
	client      objectClient
	bucket      string
	prefix      string
	defaultName string
}

func NewObjectStore(cfg S3Config) (*ObjectStore, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if strings.TrimSpace(cfg.DefaultName) == "" {
		return nil, fmt.Errorf("metadata default document name is required")
	}
	client, err := newMinioClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ObjectStore{
		client:      client,
		bucket:      strings.TrimSpace(cfg.Bucket),
		prefix:      cleanPrefix(cfg.Prefix),
		defaultName: strings.TrimSpace(cfg.DefaultName),
	}, nil
}

// NewObjectStoreWithClient injects the object client, for tests.
func NewObjectStoreWithClient(bucket, prefix, defaultName string, client objectClient) (*ObjectStore, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if strings.TrimSpace(defaultName) == "" {
		return nil, fmt.Errorf("metadata default document name is required")
	}
	return &ObjectStore{
		client:      client,
		bucket:      strings.TrimSpace(bucket),
		prefix:      cleanPrefix(prefix),
		defaultName: strings.TrimSpace(defaultName),
	}, nil
}

func (s *ObjectStore) Load(ctx context.Context, name string) (string, error) {
	key, err := s.resolveKey(name)
	if err != nil {
		return "", err
	}
	reader, err := s.client.Get(ctx, s.bucket, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("metadata document %q: %w", key, ErrNotFound)
		}
		return "", fmt.Errorf("get metadata document %q: %w", key, err)
	}
	defer func() { _ = reader.Close() }()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read metadata document %q: %w", key, err)
	}
	content := string(raw)
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("metadata document %q is empty", key)
	}
	return content, nil
}

func (s *ObjectStore) resolveKey(name string) (string, error) {
	name = strings.TrimSpace(strings.TrimPrefix(name, "/"))
	if name == "" {
		name = s.defaultName
	}
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid metadata document name: %q", name)
	}
	if s.prefix == "" {
		return cleaned, nil
	}
	return path.Join(s.prefix, cleaned), nil
}

func cleanPrefix(prefix string) string {
	prefix = strings.TrimSpace(strings.TrimPrefix(prefix, "/"))
	if prefix == "" {
		return ""
	}
	prefix = path.Clean(prefix)
	if prefix == "." {
		return ""
	}
	return prefix
}

type minioObjectClient struct {
	client *minio.Client
}

func newMinioClient(cfg S3Config) (*minioObjectClient, error) {
	endpoint, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	clientImpl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &minioObjectClient{client: clientImpl}, nil
}

func (m *minioObjectClient) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	object, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioErr(err)
	}
	// GetObject defers the request; Stat surfaces missing keys eagerly.
	if _, err := object.Stat(); err != nil {
		_ = object.Close()
		return nil, mapMinioErr(err)
	}
	return object, nil
}

func mapMinioErr(err error) error {
	response := minio.ToErrorResponse(err)
	if response.Code == "NoSuchKey" || response.Code == "NoSuchBucket" {
		return ErrNotFound
	}
	return err
}

func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("endpoint is required")
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return "", false, fmt.Errorf("parse endpoint URL: %w", err)
		}
		if parsed.Host == "" {
			return "", false, fmt.Errorf("endpoint host is required")
		}
		if parsed.Scheme == "https" {
			return parsed.Host, true, nil
		}
		return parsed.Host, useSSL, nil
	}
	return raw, useSSL, nil
}

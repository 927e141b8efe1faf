package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStorage Google Cloud Storage 后端
type GCSStorage struct {
	client  *gcs.Client
	bucket  string
	baseURL string
}

// NewGCSStorage 创建 GCS 存储；credentialsFile 为空时使用默认凭据
func NewGCSStorage(ctx context.Context, bucket, credentialsFile, baseURL string) (*GCSStorage, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	opts := make([]option.ClientOption, 0, 1)
	if f := strings.TrimSpace(credentialsFile); f != "" {
		opts = append(opts, option.WithCredentialsFile(f))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	if strings.TrimSpace(baseURL) == "" || strings.HasPrefix(baseURL, "/") {
		baseURL = "https://storage.googleapis.com/" + bucket
	}
	return &GCSStorage{client: client, bucket: bucket, baseURL: baseURL}, nil
}

// Put 上传对象
func (s *GCSStorage) Put(ctx context.Context, key, contentType string, body io.Reader) (StoredObject, error) {
	key, err := CleanKey(key)
	if err != nil {
		return StoredObject{}, err
	}
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return StoredObject{}, fmt.Errorf("gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return StoredObject{}, fmt.Errorf("gcs close %s: %w", key, err)
	}
	return StoredObject{Key: key, URL: joinURL(s.baseURL, key)}, nil
}

// Delete 删除对象，不存在视为成功
func (s *GCSStorage) Delete(ctx context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	err = s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return err
	}
	return nil
}

// Close 释放客户端
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

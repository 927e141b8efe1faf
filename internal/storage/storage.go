package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/renthportal/renthportal-sub001/internal/config"
)

// ErrInvalidKey 对象路径非法
var ErrInvalidKey = errors.New("invalid object key")

// StoredObject 写入成功的对象
type StoredObject struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// ObjectStorage 对象存储抽象，完工照片与签名写入此处
type ObjectStorage interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (StoredObject, error)
	Delete(ctx context.Context, key string) error
}

// New 按配置创建存储后端
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "local":
		return NewLocalStorage(cfg.LocalDir, cfg.PublicBaseURL), nil
	case "gcs":
		return NewGCSStorage(ctx, cfg.Bucket, cfg.CredentialsFile, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// CleanKey 规范化对象路径，拒绝绝对路径与目录穿越
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

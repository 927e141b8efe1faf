package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStorage 本地磁盘存储，由 HTTP 服务以静态目录暴露
type LocalStorage struct {
	root    string
	baseURL string
}

// NewLocalStorage 创建本地存储
func NewLocalStorage(root, baseURL string) *LocalStorage {
	if root == "" {
		root = "uploads"
	}
	if baseURL == "" {
		baseURL = "/uploads"
	}
	return &LocalStorage{root: root, baseURL: baseURL}
}

// Root 存储根目录
func (s *LocalStorage) Root() string {
	return s.root
}

// Put 先写临时文件再重命名，避免读到半截文件
func (s *LocalStorage) Put(ctx context.Context, key, _ string, body io.Reader) (StoredObject, error) {
	key, err := CleanKey(key)
	if err != nil {
		return StoredObject{}, err
	}
	if err := ctx.Err(); err != nil {
		return StoredObject{}, err
	}
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return StoredObject{}, fmt.Errorf("create upload dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return StoredObject{}, err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return StoredObject{}, err
	}
	if err := tmp.Close(); err != nil {
		return StoredObject{}, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return StoredObject{}, err
	}
	return StoredObject{Key: key, URL: joinURL(s.baseURL, key)}, nil
}

// Delete 删除对象，不存在视为成功
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

package oss

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MockUploader 内存存储（用于开发/测试）
type MockUploader struct {
	mu    sync.RWMutex
	Files map[string][]byte
	// FailUpload 非空时 Upload 返回该错误
	FailUpload error
}

// NewMockUploader 创建内存存储
func NewMockUploader() *MockUploader {
	return &MockUploader{Files: make(map[string][]byte)}
}

// Provider 提供方名称
func (u *MockUploader) Provider() string {
	return ProviderMock
}

// Upload 写入内存
func (u *MockUploader) Upload(_ context.Context, objectKey string, reader io.Reader, _ string) (string, error) {
	if u.FailUpload != nil {
		return "", u.FailUpload
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	u.mu.Lock()
	u.Files[objectKey] = data
	u.mu.Unlock()
	return u.GetURL(objectKey), nil
}

// Delete 删除
func (u *MockUploader) Delete(_ context.Context, objectKey string) error {
	u.mu.Lock()
	delete(u.Files, objectKey)
	u.mu.Unlock()
	return nil
}

// Has 对象是否存在
func (u *MockUploader) Has(objectKey string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	_, ok := u.Files[objectKey]
	return ok
}

// GetURL 模拟地址
func (u *MockUploader) GetURL(objectKey string) string {
	return fmt.Sprintf("https://mock-oss.example.com/%s", objectKey)
}

package oss

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalUploader 本地磁盘存储，开发环境使用
type LocalUploader struct {
	root    string
	baseURL string
}

// NewLocalUploader 创建本地存储，root 不存在时自动创建
func NewLocalUploader(root, baseURL string) (*LocalUploader, error) {
	if root == "" {
		root = "./data/uploads"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	return &LocalUploader{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Provider 提供方名称
func (u *LocalUploader) Provider() string {
	return ProviderLocal
}

// Root 存储根目录
func (u *LocalUploader) Root() string {
	return u.root
}

// Upload 写入文件
func (u *LocalUploader) Upload(ctx context.Context, objectKey string, reader io.Reader, _ string) (string, error) {
	target, err := u.resolve(objectKey)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("创建目录失败: %w", err)
	}

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("创建文件失败: %w", err)
	}
	if _, err := io.Copy(f, &ctxReader{ctx: ctx, r: reader}); err != nil {
		f.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("写入文件失败: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return u.GetURL(objectKey), nil
}

// Delete 删除文件，不存在时不报错
func (u *LocalUploader) Delete(_ context.Context, objectKey string) error {
	target, err := u.resolve(objectKey)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// GetURL 文件访问地址
func (u *LocalUploader) GetURL(objectKey string) string {
	return u.baseURL + "/" + strings.TrimPrefix(path.Clean("/"+objectKey), "/")
}

// resolve 对象键映射为根目录下的路径，拒绝越界
func (u *LocalUploader) resolve(objectKey string) (string, error) {
	clean := path.Clean("/" + objectKey)
	if clean == "/" {
		return "", fmt.Errorf("invalid object key %q", objectKey)
	}
	return filepath.Join(u.root, filepath.FromSlash(clean)), nil
}

// ctxReader 在 ctx 取消后中断读取
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

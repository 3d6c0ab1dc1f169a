package oss

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// AliyunConfig 阿里云 OSS 配置
type AliyunConfig struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	BucketName      string
	Domain          string // 自定义域名（可选）
	BasePath        string
}

// AliyunUploader 阿里云 OSS 上传器
type AliyunUploader struct {
	bucket *oss.Bucket
	config *AliyunConfig
}

// NewAliyunUploader 创建阿里云 OSS 上传器
func NewAliyunUploader(config *AliyunConfig) (*AliyunUploader, error) {
	client, err := oss.New(config.Endpoint, config.AccessKeyID, config.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("创建 OSS 客户端失败: %w", err)
	}

	bucket, err := client.Bucket(config.BucketName)
	if err != nil {
		return nil, fmt.Errorf("获取 Bucket 失败: %w", err)
	}

	return &AliyunUploader{bucket: bucket, config: config}, nil
}

// Provider 提供方名称
func (u *AliyunUploader) Provider() string {
	return ProviderAliyun
}

// Upload 上传对象
func (u *AliyunUploader) Upload(ctx context.Context, objectKey string, reader io.Reader, contentType string) (string, error) {
	opts := []oss.Option{oss.WithContext(ctx)}
	if contentType != "" {
		opts = append(opts, oss.ContentType(contentType))
	}
	if err := u.bucket.PutObject(u.fullKey(objectKey), reader, opts...); err != nil {
		return "", fmt.Errorf("上传文件失败: %w", err)
	}
	return u.GetURL(objectKey), nil
}

// Delete 删除对象
func (u *AliyunUploader) Delete(ctx context.Context, objectKey string) error {
	return u.bucket.DeleteObject(u.fullKey(objectKey), oss.WithContext(ctx))
}

// GetURL 对象访问地址
func (u *AliyunUploader) GetURL(objectKey string) string {
	key := u.fullKey(objectKey)
	if u.config.Domain != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(u.config.Domain, "/"), key)
	}
	return fmt.Sprintf("https://%s.%s/%s", u.config.BucketName, u.config.Endpoint, key)
}

func (u *AliyunUploader) fullKey(objectKey string) string {
	if u.config.BasePath == "" {
		return objectKey
	}
	return path.Join(u.config.BasePath, objectKey)
}

// Package oss 对象存储：阿里云 OSS、本地磁盘与内存实现
package oss

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// 存储提供方
const (
	ProviderAliyun = "aliyun"
	ProviderLocal  = "local"
	ProviderMock   = "mock"
)

// Uploader 对象存储接口
type Uploader interface {
	Upload(ctx context.Context, objectKey string, reader io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, objectKey string) error
	GetURL(objectKey string) string
	Provider() string
}

// Config 存储配置
type Config struct {
	Provider        string
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	Domain          string
	BasePath        string
	LocalRoot       string
	LocalBaseURL    string
}

// New 按提供方创建上传器
func New(cfg Config) (Uploader, error) {
	switch cfg.Provider {
	case ProviderAliyun:
		return NewAliyunUploader(&AliyunConfig{
			Endpoint:        cfg.Endpoint,
			AccessKeyID:     cfg.AccessKeyID,
			AccessKeySecret: cfg.AccessKeySecret,
			BucketName:      cfg.Bucket,
			Domain:          cfg.Domain,
			BasePath:        cfg.BasePath,
		})
	case ProviderLocal, "":
		return NewLocalUploader(cfg.LocalRoot, cfg.LocalBaseURL)
	case ProviderMock:
		return NewMockUploader(), nil
	}
	return nil, fmt.Errorf("unsupported oss provider %q", cfg.Provider)
}

// GenerateObjectKey 生成对象键：目录/日期/uuid.扩展名
func GenerateObjectKey(folder, filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("%s/%s/%s%s", strings.Trim(folder, "/"), now.Format("2006/01/02"), uuid.NewString(), ext)
}

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".txt":  "text/plain",
	".zip":  "application/zip",
}

// GetContentType 根据扩展名获取 Content-Type
func GetContentType(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// 媒体类型
const (
	KindImage    = "image"
	KindVideo    = "video"
	KindDocument = "document"
)

// KindOf 根据 Content-Type 归类为图片、视频或文档
func KindOf(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return KindImage
	case strings.HasPrefix(contentType, "video/"):
		return KindVideo
	}
	return KindDocument
}

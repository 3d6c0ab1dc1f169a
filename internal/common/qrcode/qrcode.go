// Package qrcode 生成文章分享二维码
package qrcode

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

// 尺寸范围（像素）
const (
	MinSize     = 64
	MaxSize     = 1024
	DefaultSize = 256
)

// Generator 二维码生成器
type Generator struct {
	size  int
	level qrcode.RecoveryLevel
}

// Option 生成器选项
type Option func(*Generator)

// WithSize 设置尺寸，超出范围时截断
func WithSize(size int) Option {
	return func(g *Generator) {
		g.size = ClampSize(size)
	}
}

// WithHighRecovery 使用 25% 纠错，适合打印物料
func WithHighRecovery() Option {
	return func(g *Generator) {
		g.level = qrcode.High
	}
}

// NewGenerator 创建二维码生成器
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{size: DefaultSize, level: qrcode.Medium}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Size 输出尺寸
func (g *Generator) Size() int {
	return g.size
}

// ClampSize 将尺寸限制在允许范围内，非正数使用默认值
func ClampSize(size int) int {
	switch {
	case size <= 0:
		return DefaultSize
	case size < MinSize:
		return MinSize
	case size > MaxSize:
		return MaxSize
	}
	return size
}

// PNG 生成 PNG 格式二维码
func (g *Generator) PNG(content string) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("二维码内容为空")
	}
	data, err := qrcode.Encode(content, g.level, g.size)
	if err != nil {
		return nil, fmt.Errorf("生成二维码失败: %w", err)
	}
	return data, nil
}

// DataURL 生成 data:image/png;base64 格式二维码
func (g *Generator) DataURL(content string) (string, error) {
	data, err := g.PNG(content)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// ShareURL 拼接官网文章地址并附带来源参数
func ShareURL(baseURL, path, source string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("无效的官网地址: %q", baseURL)
	}
	if source != "" {
		q := u.Query()
		q.Set("utm_source", source)
		q.Set("utm_medium", "qrcode")
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// MediaFile 媒体库文件
type MediaFile struct {
	ID           string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name         string            `gorm:"type:varchar(255);not null" json:"name"`
	Type         string            `gorm:"type:varchar(20);index;not null" json:"type"`
	ContentType  string            `gorm:"type:varchar(100)" json:"content_type"`
	Size         int64             `gorm:"not null" json:"size"`
	Folder       string            `gorm:"type:varchar(50);index;not null" json:"folder"`
	ObjectKey    string            `gorm:"type:varchar(255);uniqueIndex;not null" json:"-"`
	Provider     string            `gorm:"type:varchar(20);not null" json:"provider"`
	URL          string            `gorm:"type:varchar(500);not null" json:"url"`
	ThumbnailURL string            `gorm:"type:varchar(500)" json:"thumbnail_url,omitempty"`
	Meta         datatypes.JSONMap `json:"meta,omitempty"`
	UploadedBy   string            `gorm:"type:varchar(100)" json:"uploaded_by,omitempty"`
	CreatedAt    time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 表名
func (MediaFile) TableName() string {
	return "media_files"
}

// 元数据键
const (
	MetaWidth  = "width"
	MetaHeight = "height"
)

// Dimensions 图片尺寸，不存在时返回 ok=false
func (m *MediaFile) Dimensions() (width, height int, ok bool) {
	w, wok := metaInt(m.Meta, MetaWidth)
	h, hok := metaInt(m.Meta, MetaHeight)
	return w, h, wok && hok
}

func metaInt(meta datatypes.JSONMap, key string) (int, bool) {
	switch v := meta[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/agency-portal/internal/models"
)

// MediaRepository 媒体文件仓储
type MediaRepository struct {
	db *gorm.DB
}

// NewMediaRepository 创建媒体文件仓储
func NewMediaRepository(db *gorm.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// Create 保存文件记录
func (r *MediaRepository) Create(ctx context.Context, file *models.MediaFile) error {
	return r.db.WithContext(ctx).Create(file).Error
}

// GetByID 根据 ID 获取文件
func (r *MediaRepository) GetByID(ctx context.Context, id string) (*models.MediaFile, error) {
	var file models.MediaFile
	if err := r.db.WithContext(ctx).First(&file, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

// ListAll 获取目录下全部文件，folder 为空时返回所有目录
func (r *MediaRepository) ListAll(ctx context.Context, folder string) ([]models.MediaFile, error) {
	var files []models.MediaFile
	query := r.db.WithContext(ctx).Model(&models.MediaFile{})
	if folder != "" {
		query = query.Where("folder = ?", folder)
	}
	if err := query.Order("created_at DESC").Order("id").Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

// FolderCount 目录文件数
type FolderCount struct {
	Folder string `json:"folder"`
	Count  int64  `json:"count"`
	Size   int64  `json:"size"`
}

// CountByFolder 按目录统计文件数与总大小
func (r *MediaRepository) CountByFolder(ctx context.Context) ([]FolderCount, error) {
	var out []FolderCount
	err := r.db.WithContext(ctx).Model(&models.MediaFile{}).
		Select("folder, COUNT(*) AS count, COALESCE(SUM(size), 0) AS size").
		Group("folder").
		Order("folder").
		Scan(&out).Error
	return out, err
}

// Delete 删除文件记录
func (r *MediaRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.MediaFile{}, "id = ?", id).Error
}

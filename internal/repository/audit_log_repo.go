package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/agency-portal/internal/models"
)

// AuditLogRepository 审计日志仓储
type AuditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository 创建审计日志仓储
func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// AuditFilter 审计日志筛选条件
type AuditFilter struct {
	Username string
	Module   string
	Action   string
	Since    *time.Time
	Until    *time.Time
}

// Create 写入审计日志
func (r *AuditLogRepository) Create(ctx context.Context, log *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// List 按时间倒序分页查询
func (r *AuditLogRepository) List(ctx context.Context, offset, limit int, f AuditFilter) ([]*models.AuditLog, int64, error) {
	var logs []*models.AuditLog
	var total int64

	query := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.Username != "" {
		query = query.Where("username = ?", f.Username)
	}
	if f.Module != "" {
		query = query.Where("module = ?", f.Module)
	}
	if f.Action != "" {
		query = query.Where("action = ?", f.Action)
	}
	if f.Since != nil {
		query = query.Where("created_at >= ?", *f.Since)
	}
	if f.Until != nil {
		query = query.Where("created_at <= ?", *f.Until)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// DeleteBefore 删除早于指定时间的记录，返回删除条数
func (r *AuditLogRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", before).Delete(&models.AuditLog{})
	return result.RowsAffected, result.Error
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog 管理端写操作审计记录
type AuditLog struct {
	ID        int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string            `gorm:"type:varchar(36);index" json:"session_id"`
	Username  string            `gorm:"type:varchar(100);index" json:"username"`
	Role      string            `gorm:"type:varchar(20)" json:"role"`
	Module    string            `gorm:"type:varchar(50);index;not null" json:"module"`
	Action    string            `gorm:"type:varchar(50);not null" json:"action"`
	TargetID  string            `gorm:"type:varchar(64)" json:"target_id,omitempty"`
	Method    string            `gorm:"type:varchar(10)" json:"method"`
	Path      string            `gorm:"type:varchar(255)" json:"path"`
	Status    int               `json:"status"`
	Payload   datatypes.JSONMap `json:"payload,omitempty"`
	IP        string            `gorm:"type:varchar(45)" json:"ip"`
	UserAgent string            `gorm:"type:varchar(255)" json:"user_agent,omitempty"`
	CreatedAt time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 表名
func (AuditLog) TableName() string {
	return "audit_logs"
}

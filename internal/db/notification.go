package db

import "time"

// 通知级别
const (
	SeveritySuccess = "success"
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Notification 站内通知
type Notification struct {
	ID          uint   `gorm:"primaryKey"`
	RecipientID uint   `gorm:"index;not null"`
	Title       string `gorm:"size:200;not null"`
	Message     string `gorm:"type:text"`
	Severity    string `gorm:"size:16;not null;default:info"`
	ReadAt      *time.Time
	CreatedAt   time.Time
}

// TableName 指定自定义表名。
func (Notification) TableName() string {
	return "notifications"
}

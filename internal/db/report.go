package db

import (
	"time"

	"gorm.io/datatypes"
)

// 周报整体状态（进度评估），以彩色标签展示
const (
	ReportStatusOnTrack        = "on_track"
	ReportStatusNeedsAttention = "needs_attention"
	ReportStatusDelayed        = "delayed"
)

// 提交状态
const (
	SubmissionDraft     = "draft"
	SubmissionSubmitted = "submitted"
)

// Report 记录员工针对 (客户, 服务, 周) 的周报。
// 草稿与正式周报是同一行：IsDraft 从 true 变为 false。
// 唯一索引覆盖自然键，因此同一键最多只有一行。
type Report struct {
	ID              uint   `gorm:"primaryKey"`
	EmployeeID      uint   `gorm:"not null;uniqueIndex:idx_reports_natural_key;index"`
	ClientID        uint   `gorm:"not null;uniqueIndex:idx_reports_natural_key"`
	ServiceID       uint   `gorm:"not null;uniqueIndex:idx_reports_natural_key"`
	WeekKey         string `gorm:"size:10;not null;uniqueIndex:idx_reports_natural_key;index"`
	WorkSummary     string `gorm:"type:text"`
	KeyWins         string `gorm:"type:text"`
	Challenges      string `gorm:"type:text"`
	NextWeekPlan    string `gorm:"type:text"`
	Status          string `gorm:"size:32"`
	IsDraft         bool   `gorm:"not null;index"`
	SubmissionState string `gorm:"size:16;not null;default:draft"`
	Revision        int    `gorm:"not null"`
	SubmittedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Metrics *ReportMetrics `gorm:"foreignKey:ReportID"`
}

// TableName 指定自定义表名。
func (Report) TableName() string {
	return "reports"
}

// ReportMetrics 是提交时写入的结构化指标，与周报一对一，写入后不再修改。
type ReportMetrics struct {
	ID        uint           `gorm:"primaryKey"`
	ReportID  uint           `gorm:"uniqueIndex;not null"`
	Category  string         `gorm:"size:64;not null"`
	Kind      string         `gorm:"size:32;not null"`
	Payload   datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time
}

// TableName 指定自定义表名。
func (ReportMetrics) TableName() string {
	return "report_metrics"
}

// ReportStatusChange 记录周报状态与提交状态的每一次变化。
type ReportStatusChange struct {
	ID         uint   `gorm:"primaryKey"`
	ReportID   uint   `gorm:"index;not null"`
	FromStatus string `gorm:"size:32"`
	ToStatus   string `gorm:"size:32"`
	FromState  string `gorm:"size:16"`
	ToState    string `gorm:"size:16"`
	ChangedBy  uint
	CreatedAt  time.Time
}

// TableName 指定自定义表名。
func (ReportStatusChange) TableName() string {
	return "report_status_changes"
}

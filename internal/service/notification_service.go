package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agencyops/internal/db"
	"gorm.io/gorm"
)

// ErrNotificationNotFound 通知不存在或不属于当前用户
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationInput 描述一条待发送的通知
type NotificationInput struct {
	RecipientID uint
	Title       string
	Message     string
	Severity    string
}

// NotificationSink 接收通知；对周报流程而言是发出即忘，失败不影响提交结果。
type NotificationSink interface {
	Notify(ctx context.Context, input NotificationInput) error
}

// NotificationService 以数据库表实现站内通知
type NotificationService struct {
	db *gorm.DB
}

// NewNotificationService 构造 NotificationService
func NewNotificationService(gdb *gorm.DB) *NotificationService {
	return &NotificationService{db: gdb}
}

// Notify 写入一条通知
func (s *NotificationService) Notify(ctx context.Context, input NotificationInput) error {
	if input.RecipientID == 0 {
		return errors.New("notification recipient is required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return errors.New("notification title is required")
	}

	notification := db.Notification{
		RecipientID: input.RecipientID,
		Title:       title,
		Message:     strings.TrimSpace(input.Message),
		Severity:    normalizeSeverity(input.Severity),
	}
	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListForRecipient 返回用户的通知，最新的在前
func (s *NotificationService) ListForRecipient(ctx context.Context, recipientID uint, unreadOnly bool, limit int) ([]db.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := s.db.WithContext(ctx).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var notifications []db.Notification
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// UnreadCount 返回未读数量
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID uint) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&db.Notification{}).
		Where("recipient_id = ? AND read_at IS NULL", recipientID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}

// MarkRead 标记已读，只能操作自己的通知
func (s *NotificationService) MarkRead(ctx context.Context, recipientID, id uint) error {
	result := s.db.WithContext(ctx).Model(&db.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Update("read_at", time.Now())
	if result.Error != nil {
		return fmt.Errorf("mark notification read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func normalizeSeverity(severity string) string {
	switch strings.TrimSpace(strings.ToLower(severity)) {
	case db.SeveritySuccess:
		return db.SeveritySuccess
	case db.SeverityWarning:
		return db.SeverityWarning
	case db.SeverityError:
		return db.SeverityError
	default:
		return db.SeverityInfo
	}
}

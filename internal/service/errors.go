package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agencyops/internal/metrics"
	"gorm.io/gorm"
)

var (
	// ErrDuplicateSubmission 同一 (员工, 客户, 服务, 周) 已存在正式周报
	ErrDuplicateSubmission = errors.New("report already submitted for this week")
	// ErrIntegrityViolation 同一键存在多条草稿，属于数据完整性错误，不能随意挑选一条
	ErrIntegrityViolation = errors.New("more than one draft exists for report key")
	// ErrStaleDraft 草稿已被其他会话修改（仅在调用方携带 revision 时出现）
	ErrStaleDraft = errors.New("draft was modified by another session")
	// ErrNotAssigned 员工没有该客户服务的填报权限
	ErrNotAssigned = errors.New("employee is not assigned to this client service")
	// ErrForbidden 当前身份无权访问该资源
	ErrForbidden = errors.New("operation not permitted")
	// ErrReportNotFound 周报不存在
	ErrReportNotFound = errors.New("report not found")
	// ErrDraftNotFound 草稿不存在
	ErrDraftNotFound = errors.New("draft not found")
	// ErrNotificationDelivery 通知发送失败，只记录日志
	ErrNotificationDelivery = errors.New("notification delivery failed")
)

// ValidationError 表示输入不合法，Fields 列出所有失败的字段；不会写入任何数据。
type ValidationError struct {
	Fields []metrics.FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.FieldNames(), ", "))
}

// FieldNames 返回失败字段名列表。
func (e *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return names
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, metrics.FieldError{Field: field, Message: message})
}

func (e *ValidationError) empty() bool {
	return len(e.Fields) == 0
}

func invalidField(field, message string) *ValidationError {
	verr := &ValidationError{}
	verr.add(field, message)
	return verr
}

// StoreError 包装底层存储故障（连接、锁、IO），显式操作应提示用户重试，自动保存则等待下一次触发。
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// isUniqueViolation 识别唯一约束冲突：优先使用 gorm 的错误翻译，兜底匹配驱动错误文本。
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique constraint") ||
		strings.Contains(s, "duplicate key") ||
		strings.Contains(s, "sqlstate 23505")
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/agencyops/internal/db"
	"github.com/agencyops/internal/metrics"
	"gorm.io/gorm"
)

var (
	// ErrAssignmentExists 三元组已存在
	ErrAssignmentExists = errors.New("assignment already exists")
	// ErrAssignmentNotFound 分配不存在
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrEmployeeNotFound 员工不存在
	ErrEmployeeNotFound = errors.New("employee not found")
)

// AssignmentService 决定员工可以为哪些 (客户, 服务) 提交周报
type AssignmentService struct {
	db *gorm.DB
}

// AssignmentView 是带客户与服务名称的分配记录
type AssignmentView struct {
	ID          uint   `json:"id"`
	EmployeeID  uint   `json:"employee_id"`
	Employee    string `json:"employee"`
	ClientID    uint   `json:"client_id"`
	ClientName  string `json:"client_name"`
	ServiceID   uint   `json:"service_id"`
	ServiceName string `json:"service_name"`
	Category    string `json:"category"`
}

// HasSchema 该服务类别是否定义了结构化指标
func (v AssignmentView) HasSchema() bool {
	_, ok := metrics.SchemaFor(v.Category)
	return ok
}

// AssignmentInput 管理员创建分配时的字段
type AssignmentInput struct {
	EmployeeID uint
	ClientID   uint
	ServiceID  uint
	CreatedBy  uint
}

// AssignmentFilter 后台列表过滤条件
type AssignmentFilter struct {
	EmployeeID uint
	ClientID   uint
	ServiceID  uint
}

// NewAssignmentService 构造 AssignmentService
func NewAssignmentService(gdb *gorm.DB) *AssignmentService {
	return &AssignmentService{db: gdb}
}

// ListForEmployee 返回员工可填报的 (客户, 服务) 组合
func (s *AssignmentService) ListForEmployee(ctx context.Context, employeeID uint) ([]AssignmentView, error) {
	if employeeID == 0 {
		return nil, invalidField("employee_id", "is required")
	}
	return s.List(ctx, AssignmentFilter{EmployeeID: employeeID})
}

// List 返回分配列表
func (s *AssignmentService) List(ctx context.Context, filter AssignmentFilter) ([]AssignmentView, error) {
	query := s.db.WithContext(ctx).Model(&db.Assignment{}).
		Select("assignments.id AS id, assignments.employee_id AS employee_id, users.username AS employee, " +
			"assignments.client_id AS client_id, clients.name AS client_name, " +
			"assignments.service_id AS service_id, services.name AS service_name, services.category AS category").
		Joins("JOIN users ON users.id = assignments.employee_id AND users.deleted_at IS NULL").
		Joins("JOIN clients ON clients.id = assignments.client_id AND clients.deleted_at IS NULL").
		Joins("JOIN services ON services.id = assignments.service_id AND services.deleted_at IS NULL")

	if filter.EmployeeID != 0 {
		query = query.Where("assignments.employee_id = ?", filter.EmployeeID)
	}
	if filter.ClientID != 0 {
		query = query.Where("assignments.client_id = ?", filter.ClientID)
	}
	if filter.ServiceID != 0 {
		query = query.Where("assignments.service_id = ?", filter.ServiceID)
	}

	var rows []AssignmentView
	if err := query.Order("clients.name ASC, services.name ASC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return rows, nil
}

// Allowed 判断员工是否有该客户服务的填报权限
func (s *AssignmentService) Allowed(ctx context.Context, employeeID, clientID, serviceID uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&db.Assignment{}).
		Where("employee_id = ? AND client_id = ? AND service_id = ?", employeeID, clientID, serviceID).
		Count(&count).Error; err != nil {
		return false, storeError("check assignment", err)
	}
	return count > 0, nil
}

// Create 新建分配；三元组重复返回 ErrAssignmentExists
func (s *AssignmentService) Create(ctx context.Context, input AssignmentInput) (*db.Assignment, error) {
	verr := &ValidationError{}
	if input.EmployeeID == 0 {
		verr.add("employee_id", "is required")
	}
	if input.ClientID == 0 {
		verr.add("client_id", "is required")
	}
	if input.ServiceID == 0 {
		verr.add("service_id", "is required")
	}
	if !verr.empty() {
		return nil, verr
	}

	gdb := s.db.WithContext(ctx)
	if err := mustExist(gdb, &db.User{}, input.EmployeeID, ErrEmployeeNotFound); err != nil {
		return nil, err
	}
	if err := mustExist(gdb, &db.Client{}, input.ClientID, ErrClientNotFound); err != nil {
		return nil, err
	}
	if err := mustExist(gdb, &db.Service{}, input.ServiceID, ErrServiceNotFound); err != nil {
		return nil, err
	}

	assignment := db.Assignment{
		EmployeeID: input.EmployeeID,
		ClientID:   input.ClientID,
		ServiceID:  input.ServiceID,
		CreatedBy:  input.CreatedBy,
	}
	if err := gdb.Create(&assignment).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAssignmentExists
		}
		return nil, fmt.Errorf("create assignment: %w", err)
	}
	return &assignment, nil
}

// Delete 删除分配；只影响之后的填报，历史周报保留
func (s *AssignmentService) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&db.Assignment{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete assignment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

func mustExist(gdb *gorm.DB, model interface{}, id uint, notFound error) error {
	var count int64
	if err := gdb.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check existence: %w", err)
	}
	if count == 0 {
		return notFound
	}
	return nil
}

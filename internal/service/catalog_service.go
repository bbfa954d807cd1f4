package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agencyops/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrClientNotFound 客户不存在
	ErrClientNotFound = errors.New("client not found")
	// ErrClientExists 客户名称重复
	ErrClientExists = errors.New("client already exists")
	// ErrServiceNotFound 服务不存在
	ErrServiceNotFound = errors.New("service not found")
	// ErrServiceExists 服务名称重复
	ErrServiceExists = errors.New("service already exists")
)

// ClientService 负责客户的增查
type ClientService struct {
	db *gorm.DB
}

// ClientInput 创建客户时的字段
type ClientInput struct {
	Name         string
	ContactEmail string
	Status       string
}

// NewClientService 构造 ClientService
func NewClientService(gdb *gorm.DB) *ClientService {
	return &ClientService{db: gdb}
}

// List 返回客户列表，search 为空时返回全部
func (s *ClientService) List(ctx context.Context, search string) ([]db.Client, error) {
	var clients []db.Client

	query := s.db.WithContext(ctx).Model(&db.Client{})
	if trimmed := strings.TrimSpace(search); trimmed != "" {
		like := fmt.Sprintf("%%%s%%", trimmed)
		query = query.Where("name LIKE ? OR contact_email LIKE ?", like, like)
	}

	if err := query.Order("name ASC").Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

// Get 根据 ID 获取客户
func (s *ClientService) Get(ctx context.Context, id uint) (*db.Client, error) {
	var client db.Client
	if err := s.db.WithContext(ctx).First(&client, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return &client, nil
}

// Create 新建客户
func (s *ClientService) Create(ctx context.Context, input ClientInput) (*db.Client, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, invalidField("name", "is required")
	}

	status := strings.TrimSpace(strings.ToLower(input.Status))
	if status != "inactive" {
		status = "active"
	}

	client := db.Client{
		Name:         name,
		ContactEmail: strings.TrimSpace(input.ContactEmail),
		Status:       status,
	}
	if err := s.db.WithContext(ctx).Create(&client).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrClientExists
		}
		return nil, fmt.Errorf("create client: %w", err)
	}
	return &client, nil
}

// ServiceCatalog 负责服务项目的增查
type ServiceCatalog struct {
	db *gorm.DB
}

// ServiceInput 创建服务时的字段
type ServiceInput struct {
	Name     string
	Category string
}

// NewServiceCatalog 构造 ServiceCatalog
func NewServiceCatalog(gdb *gorm.DB) *ServiceCatalog {
	return &ServiceCatalog{db: gdb}
}

// List 返回服务列表，可按类别过滤
func (s *ServiceCatalog) List(ctx context.Context, category string) ([]db.Service, error) {
	var services []db.Service

	query := s.db.WithContext(ctx).Model(&db.Service{})
	if trimmed := strings.TrimSpace(category); trimmed != "" {
		query = query.Where("category = ?", trimmed)
	}

	if err := query.Order("name ASC").Find(&services).Error; err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

// Get 根据 ID 获取服务
func (s *ServiceCatalog) Get(ctx context.Context, id uint) (*db.Service, error) {
	var svc db.Service
	if err := s.db.WithContext(ctx).First(&svc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("get service: %w", err)
	}
	return &svc, nil
}

// Create 新建服务；类别允许是未定义 schema 的标签，此时周报只填写自由文本。
func (s *ServiceCatalog) Create(ctx context.Context, input ServiceInput) (*db.Service, error) {
	verr := &ValidationError{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		verr.add("name", "is required")
	}
	category := strings.TrimSpace(strings.ToLower(input.Category))
	if category == "" {
		verr.add("category", "is required")
	}
	if !verr.empty() {
		return nil, verr
	}

	svc := db.Service{Name: name, Category: category}
	if err := s.db.WithContext(ctx).Create(&svc).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrServiceExists
		}
		return nil, fmt.Errorf("create service: %w", err)
	}
	return &svc, nil
}

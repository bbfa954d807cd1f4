package db

import (
	"time"

	"gorm.io/gorm"
)

// Client 代理公司服务的客户
type Client struct {
	gorm.Model
	Name         string `gorm:"size:200;uniqueIndex;not null"`
	ContactEmail string `gorm:"size:200"`
	Status       string `gorm:"size:16;not null;default:active"`
}

// Service 是可交付的服务项目，Category 决定周报需要填写哪类结构化指标。
type Service struct {
	gorm.Model
	Name     string `gorm:"size:200;uniqueIndex;not null"`
	Category string `gorm:"size:64;index;not null"`
}

// Assignment 授权员工为某客户的某项服务提交周报。
// 三元组唯一；删除只影响后续填报，不影响历史周报。
type Assignment struct {
	ID         uint `gorm:"primaryKey"`
	EmployeeID uint `gorm:"not null;uniqueIndex:idx_assignment_triple"`
	ClientID   uint `gorm:"not null;uniqueIndex:idx_assignment_triple;index"`
	ServiceID  uint `gorm:"not null;uniqueIndex:idx_assignment_triple"`
	CreatedBy  uint
	CreatedAt  time.Time
}

// TableName 指定自定义表名。
func (Assignment) TableName() string {
	return "assignments"
}

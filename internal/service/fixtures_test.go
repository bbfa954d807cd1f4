package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agencyops/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "-", " ", "-").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s-%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	gdb, err := db.Open(dsn, logger.Silent)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// reportFixture 是一名已分配到某客户服务的员工
type reportFixture struct {
	db       *gorm.DB
	admin    db.User
	employee db.User
	client   db.Client
	service  db.Service
}

func (f reportFixture) who() Identity {
	return Identity{UserID: f.employee.ID, Role: db.RoleEmployee}
}

func (f reportFixture) key(weekKey string) ReportKey {
	return ReportKey{EmployeeID: f.employee.ID, ClientID: f.client.ID, ServiceID: f.service.ID, WeekKey: weekKey}
}

func (f reportFixture) input(weekKey string, fields DraftFields) ReportInput {
	return ReportInput{ClientID: f.client.ID, ServiceID: f.service.ID, WeekKey: weekKey, Fields: fields}
}

func newReportFixture(t *testing.T, category string) reportFixture {
	t.Helper()
	gdb := setupServiceTestDB(t)

	f := reportFixture{
		db:       gdb,
		admin:    db.User{Username: "admin", Password: "x", Role: db.RoleAdmin},
		employee: db.User{Username: "alice", Password: "x", Role: db.RoleEmployee},
		client:   db.Client{Name: "Acme", Status: "active"},
		service:  db.Service{Name: "Outbound " + category, Category: category},
	}
	for _, v := range []interface{}{&f.admin, &f.employee, &f.client, &f.service} {
		if err := gdb.Create(v).Error; err != nil {
			t.Fatalf("seed fixture: %v", err)
		}
	}

	if err := gdb.Create(&db.Assignment{
		EmployeeID: f.employee.ID,
		ClientID:   f.client.ID,
		ServiceID:  f.service.ID,
		CreatedBy:  f.admin.ID,
	}).Error; err != nil {
		t.Fatalf("seed assignment: %v", err)
	}
	return f
}

func (f reportFixture) reportService(notifier NotificationSink) *ReportService {
	return NewReportService(f.db, NewDraftStore(f.db), NewAssignmentService(f.db), notifier, nil)
}

func countReports(t *testing.T, gdb *gorm.DB, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := gdb.Model(&db.Report{}).Where(where, args...).Count(&n).Error; err != nil {
		t.Fatalf("count reports: %v", err)
	}
	return n
}

// recordingSink 记录收到的通知，可配置为始终失败
type recordingSink struct {
	mu    sync.Mutex
	calls []NotificationInput
	err   error
}

func (s *recordingSink) Notify(_ context.Context, input NotificationInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, input)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

const linkedInMetrics = `{
	"connections_sent": 50,
	"connections_accepted": 12,
	"responses_received": 5,
	"positive_responses": 3,
	"meetings_booked": 1,
	"meetings": [{"date": "2024-01-10", "description": "Intro call"}]
}`

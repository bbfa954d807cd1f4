package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/agencyops/internal/config"
	"github.com/agencyops/internal/db"
	"github.com/agencyops/internal/service"
	"github.com/agencyops/internal/week"
	"gorm.io/gorm"
)

// 测试数据生成器
func main() {
	if err := config.LoadEnvFile(); err != nil {
		log.Fatal("读取 .env 失败:", err)
	}

	// 初始化数据库
	cfg := config.Load()
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")
	if err := seed(context.Background(), db.DB, time.Now()); err != nil {
		log.Fatal("生成测试数据失败:", err)
	}

	fmt.Println("测试数据生成完成！")
	fmt.Println("管理员: admin (密码: admin123)")
	fmt.Println("员工: alice / bob (密码: user123)")
}

type seedService struct {
	name     string
	category string
}

var (
	seedClients  = []string{"Acme Corp", "Globex", "Initech"}
	seedServices = []seedService{
		{"LinkedIn Outreach", "linkedin_outreach"},
		{"Email Outreach", "email_outreach"},
		{"Google Ads", "google_ads"},
		{"SEO", "seo"},
		{"Social Media", "social_media"},
		{"Content Writing", "content_writing"},
	}
)

func seed(ctx context.Context, gdb *gorm.DB, now time.Time) error {
	if err := createUsers(gdb); err != nil {
		return err
	}
	if err := createCatalog(ctx, gdb); err != nil {
		return err
	}
	if err := createAssignments(ctx, gdb); err != nil {
		return err
	}
	return createSampleReports(ctx, gdb, now)
}

// 创建测试用户
func createUsers(gdb *gorm.DB) error {
	if err := db.EnsureUser(gdb, "admin", "admin123", db.RoleAdmin); err != nil {
		return err
	}
	for _, name := range []string{"alice", "bob"} {
		if err := db.EnsureUser(gdb, name, "user123", db.RoleEmployee); err != nil {
			return err
		}
	}
	fmt.Println("✅ 测试用户创建完成")
	return nil
}

// 创建客户与服务，已存在的跳过
func createCatalog(ctx context.Context, gdb *gorm.DB) error {
	clients := service.NewClientService(gdb)
	for _, name := range seedClients {
		if _, err := clients.Create(ctx, service.ClientInput{Name: name}); err != nil && !errors.Is(err, service.ErrClientExists) {
			return err
		}
	}

	catalog := service.NewServiceCatalog(gdb)
	for _, svc := range seedServices {
		if _, err := catalog.Create(ctx, service.ServiceInput{Name: svc.name, Category: svc.category}); err != nil && !errors.Is(err, service.ErrServiceExists) {
			return err
		}
	}

	fmt.Println("✅ 客户与服务创建完成")
	return nil
}

// alice 负责 Acme 的全部服务，bob 负责其余客户的广告与 SEO
func createAssignments(ctx context.Context, gdb *gorm.DB) error {
	users, err := usersByName(gdb)
	if err != nil {
		return err
	}

	var clients []db.Client
	if err := gdb.Order("name ASC").Find(&clients).Error; err != nil {
		return err
	}
	var services []db.Service
	if err := gdb.Order("name ASC").Find(&services).Error; err != nil {
		return err
	}

	assignments := service.NewAssignmentService(gdb)
	for _, client := range clients {
		for _, svc := range services {
			employee := users["bob"]
			if client.Name == "Acme Corp" {
				employee = users["alice"]
			} else if svc.Category != "google_ads" && svc.Category != "seo" {
				continue
			}

			_, err := assignments.Create(ctx, service.AssignmentInput{
				EmployeeID: employee.ID,
				ClientID:   client.ID,
				ServiceID:  svc.ID,
				CreatedBy:  users["admin"].ID,
			})
			if err != nil && !errors.Is(err, service.ErrAssignmentExists) {
				return err
			}
		}
	}

	fmt.Println("✅ 分配创建完成")
	return nil
}

// 为 alice 生成上周已提交的 LinkedIn 周报和本周的草稿
func createSampleReports(ctx context.Context, gdb *gorm.DB, now time.Time) error {
	users, err := usersByName(gdb)
	if err != nil {
		return err
	}
	alice := service.Identity{UserID: users["alice"].ID, Role: db.RoleEmployee}

	var client db.Client
	if err := gdb.Where("name = ?", "Acme Corp").First(&client).Error; err != nil {
		return err
	}
	var linkedin db.Service
	if err := gdb.Where("category = ?", "linkedin_outreach").First(&linkedin).Error; err != nil {
		return err
	}

	reports := service.NewReportService(gdb, service.NewDraftStore(gdb), service.NewAssignmentService(gdb), service.NewNotificationService(gdb), nil)

	lastWeek := week.Start(now).AddDate(0, 0, -7)
	_, err = reports.Submit(ctx, alice, service.ReportInput{
		ClientID:  client.ID,
		ServiceID: linkedin.ID,
		WeekKey:   week.Key(lastWeek),
		Fields: service.DraftFields{
			WorkSummary:  "Sent connection requests to **VP Engineering** prospects.",
			KeyWins:      "Booked an intro call with a fintech lead.",
			Challenges:   "Acceptance rate dipped mid-week.",
			NextWeekPlan: "Follow up with accepted connections.",
			Status:       db.ReportStatusOnTrack,
		},
		Metrics: []byte(fmt.Sprintf(`{
			"connections_sent": 50,
			"connections_accepted": 12,
			"responses_received": 5,
			"positive_responses": 3,
			"meetings_booked": 1,
			"meetings": [{"date": %q, "description": "Intro call"}]
		}`, lastWeek.AddDate(0, 0, 2).Format(week.KeyLayout))),
	})
	if err != nil && !errors.Is(err, service.ErrDuplicateSubmission) {
		return err
	}

	_, err = reports.SaveDraft(ctx, alice, service.ReportInput{
		ClientID:  client.ID,
		ServiceID: linkedin.ID,
		WeekKey:   week.Key(now),
		Fields:    service.DraftFields{WorkSummary: "Drafting outreach sequence for new ICP."},
	})
	if err != nil && !errors.Is(err, service.ErrDuplicateSubmission) {
		return err
	}

	fmt.Println("✅ 示例周报创建完成")
	return nil
}

func usersByName(gdb *gorm.DB) (map[string]db.User, error) {
	var users []db.User
	if err := gdb.Where("username IN ?", []string{"admin", "alice", "bob"}).Find(&users).Error; err != nil {
		return nil, err
	}
	byName := make(map[string]db.User, len(users))
	for _, u := range users {
		byName[u.Username] = u
	}
	if len(byName) != 3 {
		return nil, errors.New("seed users missing")
	}
	return byName, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agencyops/internal/db"
	"github.com/agencyops/internal/logger"
	"github.com/agencyops/internal/metrics"
	"github.com/agencyops/internal/week"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReportState 是单个周报键的生命周期状态
type ReportState string

const (
	StateEmpty     ReportState = "empty"
	StateDrafting  ReportState = "drafting"
	StateSubmitted ReportState = "submitted"
)

// ReportService 编排周报的草稿保存、校验、指标写入、提交与通知
type ReportService struct {
	db          *gorm.DB
	drafts      *DraftStore
	assignments *AssignmentService
	services    *ServiceCatalog
	notifier    NotificationSink
	autosave    *AutoSaver
	log         logrus.FieldLogger
	now         func() time.Time
}

// ReportFilter 后台周报列表过滤条件
type ReportFilter struct {
	EmployeeID uint
	ClientID   uint
	ServiceID  uint
	WeekFrom   string
	WeekTo     string
	Status     string
	Draft      *bool
	Page       int
	PerPage    int
}

// ReportListResult 汇总分页数据与计数
type ReportListResult struct {
	Reports        []db.Report
	Total          int64
	SubmittedCount int64
	DraftCount     int64
	TotalPages     int
	Page           int
	PerPage        int
}

// NewReportService 构造 ReportService；notifier 可以为 nil。
func NewReportService(gdb *gorm.DB, drafts *DraftStore, assignments *AssignmentService, notifier NotificationSink, log logrus.FieldLogger) *ReportService {
	if log == nil {
		log = logger.Discard()
	}
	return &ReportService{
		db:          gdb,
		drafts:      drafts,
		assignments: assignments,
		services:    NewServiceCatalog(gdb),
		notifier:    notifier,
		log:         log,
		now:         time.Now,
	}
}

// WithAutoSaver 绑定自动保存调度器，提交成功后停止对应键的会话。
func (s *ReportService) WithAutoSaver(autosave *AutoSaver) *ReportService {
	s.autosave = autosave
	return s
}

// State 返回键当前所处的生命周期状态
func (s *ReportService) State(ctx context.Context, key ReportKey) (ReportState, error) {
	key, err := key.normalize()
	if err != nil {
		return "", err
	}

	draft, final, err := s.drafts.lookup(ctx, key)
	if err != nil {
		return "", err
	}
	return stateOf(draft, final), nil
}

func stateOf(draft, final *db.Report) ReportState {
	switch {
	case final != nil:
		return StateSubmitted
	case draft != nil:
		return StateDrafting
	default:
		return StateEmpty
	}
}

// SaveDraft 手动保存草稿；与自动保存不同，所有错误都返回给调用方。
func (s *ReportService) SaveDraft(ctx context.Context, who Identity, input ReportInput) (*db.Report, error) {
	key, err := input.keyFor(who, s.now()).normalize()
	if err != nil {
		return nil, err
	}
	if err := s.ensureAssigned(ctx, key); err != nil {
		return nil, err
	}

	return s.drafts.UpsertDraft(ctx, DraftInput{Key: key, Fields: input.Fields, Revision: input.Revision})
}

// Submit 校验并提交周报。校验失败不写入任何数据；
// 指标写入与草稿提升在同一事务中完成，任何一步失败时周报保持草稿状态，可以重试。
func (s *ReportService) Submit(ctx context.Context, who Identity, input ReportInput) (*db.Report, error) {
	key, err := input.keyFor(who, s.now()).normalize()
	if err != nil {
		return nil, err
	}

	svc, err := s.services.Get(ctx, key.ServiceID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureAssigned(ctx, key); err != nil {
		return nil, err
	}
	if _, final, err := s.drafts.lookup(ctx, key); err != nil {
		return nil, err
	} else if final != nil {
		return nil, ErrDuplicateSubmission
	}

	fields := input.Fields.trimmed()
	payload, err := validateSubmission(svc.Category, fields, input.Metrics)
	if err != nil {
		return nil, err
	}

	var encoded []byte
	if payload != nil {
		if encoded, err = metrics.Encode(payload); err != nil {
			return nil, fmt.Errorf("encode metrics: %w", err)
		}
	}

	var reportID uint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.drafts.withDB(tx)

		draft, err := store.current(ctx, key)
		if err != nil {
			return err
		}
		if draft == nil {
			// 未经草稿直接提交
			draft, err = store.createDraft(ctx, key, fields)
			if err != nil {
				if isUniqueViolation(err) {
					return ErrDuplicateSubmission
				}
				return storeError("create report", err)
			}
		}

		if payload != nil {
			record := db.ReportMetrics{
				ReportID: draft.ID,
				Category: svc.Category,
				Kind:     string(payload.Kind()),
				Payload:  datatypes.JSON(encoded),
			}
			if err := tx.Create(&record).Error; err != nil {
				if isUniqueViolation(err) {
					return ErrDuplicateSubmission
				}
				return storeError("save metrics", err)
			}
		}

		promoted, err := store.Promote(ctx, draft.ID, fields)
		if err != nil {
			return err
		}
		reportID = promoted.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	report, err := s.load(ctx, reportID)
	if err != nil {
		return nil, err
	}

	s.notifySubmitted(ctx, report, svc)
	if s.autosave != nil {
		s.autosave.StopKey(key)
	}

	s.log.WithFields(logrus.Fields{
		"report_id": report.ID,
		"employee":  key.EmployeeID,
		"client":    key.ClientID,
		"service":   key.ServiceID,
		"week":      key.WeekKey,
	}).Info("report submitted")

	return report, nil
}

// validateSubmission 检查必填文本、状态枚举，并在类别定义了 schema 时解码指标。
func validateSubmission(category string, fields DraftFields, rawMetrics []byte) (metrics.Payload, error) {
	verr := &ValidationError{}
	if fields.WorkSummary == "" {
		verr.add("work_summary", "is required")
	}
	if !validStatus(fields.Status) {
		verr.add("status", "must be one of on_track, needs_attention, delayed")
	}

	var payload metrics.Payload
	if _, ok := metrics.SchemaFor(category); ok {
		decoded, err := metrics.Decode(category, rawMetrics)
		if err != nil {
			var mv *metrics.ValidationError
			if !errors.As(err, &mv) {
				return nil, err
			}
			verr.Fields = append(verr.Fields, mv.Fields...)
		}
		payload = decoded
	}

	if !verr.empty() {
		return nil, verr
	}
	return payload, nil
}

func (s *ReportService) notifySubmitted(ctx context.Context, report *db.Report, svc *db.Service) {
	if s.notifier == nil {
		return
	}

	clientName := fmt.Sprintf("client #%d", report.ClientID)
	var client db.Client
	if err := s.db.WithContext(ctx).Select("name").First(&client, report.ClientID).Error; err == nil {
		clientName = client.Name
	}

	err := s.notifier.Notify(ctx, NotificationInput{
		RecipientID: report.EmployeeID,
		Title:       "Weekly report submitted",
		Message:     fmt.Sprintf("Your %s report for %s (week of %s) was submitted.", svc.Name, clientName, report.WeekKey),
		Severity:    db.SeveritySuccess,
	})
	if err != nil {
		s.log.WithError(fmt.Errorf("%w: %v", ErrNotificationDelivery, err)).
			WithField("report_id", report.ID).
			Warn("submission notification not delivered")
	}
}

// Get 返回周报详情（包含指标）；员工只能查看自己的周报，管理员可以查看全部。
func (s *ReportService) Get(ctx context.Context, who Identity, id uint) (*db.Report, error) {
	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !who.IsAdmin() && report.EmployeeID != who.UserID {
		return nil, ErrForbidden
	}
	return report, nil
}

// StatusHistory 返回周报的状态变化记录
func (s *ReportService) StatusHistory(ctx context.Context, who Identity, id uint) ([]db.ReportStatusChange, error) {
	if _, err := s.Get(ctx, who, id); err != nil {
		return nil, err
	}

	var changes []db.ReportStatusChange
	if err := s.db.WithContext(ctx).Where("report_id = ?", id).Order("id ASC").Find(&changes).Error; err != nil {
		return nil, storeError("list status changes", err)
	}
	return changes, nil
}

// History 返回员工在该客户服务上已提交的周报（最新在前）
func (s *ReportService) History(ctx context.Context, employeeID, clientID, serviceID uint, limit int) ([]db.Report, error) {
	if limit <= 0 || limit > 52 {
		limit = 8
	}

	query := s.db.WithContext(ctx).Preload("Metrics").
		Where("employee_id = ? AND is_draft = ?", employeeID, false)
	if clientID != 0 {
		query = query.Where("client_id = ?", clientID)
	}
	if serviceID != 0 {
		query = query.Where("service_id = ?", serviceID)
	}

	var reports []db.Report
	if err := query.Order("week_key DESC, id DESC").Limit(limit).Find(&reports).Error; err != nil {
		return nil, storeError("list report history", err)
	}
	return reports, nil
}

// List 提供后台分页周报列表及计数
func (s *ReportService) List(ctx context.Context, filter ReportFilter) (*ReportListResult, error) {
	result := &ReportListResult{Page: filter.Page, PerPage: filter.PerPage}
	if result.Page <= 0 {
		result.Page = 1
	}
	if result.PerPage <= 0 {
		result.PerPage = 20
	}

	if err := s.applyFilters(s.db.WithContext(ctx).Model(&db.Report{}), filter).
		Count(&result.Total).Error; err != nil {
		return nil, storeError("count reports", err)
	}

	var reports []db.Report
	offset := (result.Page - 1) * result.PerPage
	if err := s.applyFilters(s.db.WithContext(ctx).Model(&db.Report{}).Preload("Metrics"), filter).
		Order("week_key DESC, id DESC").
		Limit(result.PerPage).
		Offset(offset).
		Find(&reports).Error; err != nil {
		return nil, storeError("list reports", err)
	}

	withoutDraft := filter
	withoutDraft.Draft = nil

	if err := s.applyFilters(s.db.WithContext(ctx).Model(&db.Report{}), withoutDraft).
		Where("is_draft = ?", false).
		Count(&result.SubmittedCount).Error; err != nil {
		return nil, storeError("count submitted reports", err)
	}
	if err := s.applyFilters(s.db.WithContext(ctx).Model(&db.Report{}), withoutDraft).
		Where("is_draft = ?", true).
		Count(&result.DraftCount).Error; err != nil {
		return nil, storeError("count draft reports", err)
	}

	if result.Total == 0 {
		result.TotalPages = 1
	} else {
		result.TotalPages = int((result.Total + int64(result.PerPage) - 1) / int64(result.PerPage))
	}

	result.Reports = reports
	return result, nil
}

// ListStaleDrafts 返回早于当前周仍未提交的草稿；这些草稿不会被自动删除，也不计入已完成周报。
func (s *ReportService) ListStaleDrafts(ctx context.Context, now time.Time) ([]db.Report, error) {
	var drafts []db.Report
	if err := s.db.WithContext(ctx).
		Where("is_draft = ? AND week_key < ?", true, week.Key(now)).
		Order("week_key ASC, employee_id ASC").
		Find(&drafts).Error; err != nil {
		return nil, storeError("list stale drafts", err)
	}
	return drafts, nil
}

func (s *ReportService) applyFilters(query *gorm.DB, filter ReportFilter) *gorm.DB {
	if filter.EmployeeID != 0 {
		query = query.Where("employee_id = ?", filter.EmployeeID)
	}
	if filter.ClientID != 0 {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.ServiceID != 0 {
		query = query.Where("service_id = ?", filter.ServiceID)
	}
	if from, err := week.Normalize(filter.WeekFrom); err == nil {
		query = query.Where("week_key >= ?", from)
	}
	if to, err := week.Normalize(filter.WeekTo); err == nil {
		query = query.Where("week_key <= ?", to)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.Draft != nil {
		query = query.Where("is_draft = ?", *filter.Draft)
	}
	return query
}

func (s *ReportService) load(ctx context.Context, id uint) (*db.Report, error) {
	var report db.Report
	if err := s.db.WithContext(ctx).Preload("Metrics").First(&report, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, storeError("load report", err)
	}
	return &report, nil
}

func (s *ReportService) ensureAssigned(ctx context.Context, key ReportKey) error {
	allowed, err := s.assignments.Allowed(ctx, key.EmployeeID, key.ClientID, key.ServiceID)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrNotAssigned
	}
	return nil
}

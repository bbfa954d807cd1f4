package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agencyops/internal/db"
	"gorm.io/gorm"
)

// DraftInput 描述一次草稿写入。Revision>0 时要求与当前行的 revision 一致，否则返回 ErrStaleDraft；
// 为 0 时保持最后写入者生效。
type DraftInput struct {
	Key      ReportKey
	Fields   DraftFields
	Revision int
}

// DraftStore 维护每个 (员工, 客户, 服务, 周) 至多一条未提交的周报。
type DraftStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDraftStore 构造 DraftStore
func NewDraftStore(gdb *gorm.DB) *DraftStore {
	return &DraftStore{db: gdb, now: time.Now}
}

func (s *DraftStore) withDB(tx *gorm.DB) *DraftStore {
	return &DraftStore{db: tx, now: s.now}
}

// LoadDraft 返回该键下的草稿；没有时返回 nil, nil。
func (s *DraftStore) LoadDraft(ctx context.Context, key ReportKey) (*db.Report, error) {
	key, err := key.normalize()
	if err != nil {
		return nil, err
	}

	draft, _, err := s.lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// UpsertDraft 不存在草稿时创建（IsDraft=true），存在时只覆盖自由文本与状态，身份与键字段不变。
// 重复调用收敛到最后一次的字段值；键已有正式周报时返回 ErrDuplicateSubmission。
func (s *DraftStore) UpsertDraft(ctx context.Context, input DraftInput) (*db.Report, error) {
	key, err := input.Key.normalize()
	if err != nil {
		return nil, err
	}

	fields := input.Fields.trimmed()
	if err := checkDraftStatus(fields); err != nil {
		return nil, err
	}

	existing, err := s.current(ctx, key)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		if input.Revision > 0 {
			return nil, ErrStaleDraft
		}

		report, err := s.createDraft(ctx, key, fields)
		if err == nil {
			return report, nil
		}
		if !isUniqueViolation(err) {
			return nil, storeError("create draft", err)
		}

		// 并发创建时落败的一方重新读取，按更新处理
		existing, err = s.current(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, storeError("create draft", errors.New("draft disappeared after insert conflict"))
		}
	}

	return s.updateDraft(ctx, existing, fields, input.Revision)
}

// Promote 是唯一允许把周报移出草稿状态的操作。
// 目标已是正式周报时返回 ErrDuplicateSubmission，且不修改其任何字段。
func (s *DraftStore) Promote(ctx context.Context, draftID uint, final DraftFields) (*db.Report, error) {
	fields := final.trimmed()

	var promoted db.Report
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var report db.Report
		if err := tx.First(&report, draftID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDraftNotFound
			}
			return storeError("load draft", err)
		}

		if !report.IsDraft {
			return ErrDuplicateSubmission
		}

		now := s.now()
		result := tx.Model(&db.Report{}).
			Where("id = ? AND is_draft = ?", report.ID, true).
			Updates(map[string]interface{}{
				"work_summary":     fields.WorkSummary,
				"key_wins":         fields.KeyWins,
				"challenges":       fields.Challenges,
				"next_week_plan":   fields.NextWeekPlan,
				"status":           fields.Status,
				"is_draft":         false,
				"submission_state": db.SubmissionSubmitted,
				"submitted_at":     now,
				"revision":         gorm.Expr("revision + 1"),
			})
		if result.Error != nil {
			if isUniqueViolation(result.Error) {
				return ErrDuplicateSubmission
			}
			return storeError("promote draft", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrDuplicateSubmission
		}

		if err := recordChange(tx, db.ReportStatusChange{
			ReportID:   report.ID,
			FromStatus: report.Status,
			ToStatus:   fields.Status,
			FromState:  db.SubmissionDraft,
			ToState:    db.SubmissionSubmitted,
			ChangedBy:  report.EmployeeID,
		}); err != nil {
			return err
		}

		if err := tx.First(&promoted, report.ID).Error; err != nil {
			return storeError("reload report", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &promoted, nil
}

// lookup 读取键下的所有行，拆分为草稿与正式周报；多条草稿视为完整性错误。
func (s *DraftStore) lookup(ctx context.Context, key ReportKey) (*db.Report, *db.Report, error) {
	var rows []db.Report
	if err := s.db.WithContext(ctx).
		Where("employee_id = ? AND client_id = ? AND service_id = ? AND week_key = ?",
			key.EmployeeID, key.ClientID, key.ServiceID, key.WeekKey).
		Order("id asc").
		Limit(3).
		Find(&rows).Error; err != nil {
		return nil, nil, storeError("find report by key", err)
	}

	var draft, final *db.Report
	drafts := 0
	for i := range rows {
		if rows[i].IsDraft {
			drafts++
			draft = &rows[i]
			continue
		}
		final = &rows[i]
	}

	if drafts > 1 {
		return nil, nil, fmt.Errorf("%w: %s", ErrIntegrityViolation, key)
	}
	return draft, final, nil
}

// current 返回可写的草稿；已提交时返回 ErrDuplicateSubmission。
func (s *DraftStore) current(ctx context.Context, key ReportKey) (*db.Report, error) {
	draft, final, err := s.lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if final != nil {
		return nil, ErrDuplicateSubmission
	}
	return draft, nil
}

func (s *DraftStore) createDraft(ctx context.Context, key ReportKey, fields DraftFields) (*db.Report, error) {
	report := db.Report{
		EmployeeID:      key.EmployeeID,
		ClientID:        key.ClientID,
		ServiceID:       key.ServiceID,
		WeekKey:         key.WeekKey,
		WorkSummary:     fields.WorkSummary,
		KeyWins:         fields.KeyWins,
		Challenges:      fields.Challenges,
		NextWeekPlan:    fields.NextWeekPlan,
		Status:          fields.Status,
		IsDraft:         true,
		SubmissionState: db.SubmissionDraft,
		Revision:        1,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		return recordChange(tx, db.ReportStatusChange{
			ReportID:  report.ID,
			ToStatus:  report.Status,
			ToState:   db.SubmissionDraft,
			ChangedBy: key.EmployeeID,
		})
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *DraftStore) updateDraft(ctx context.Context, existing *db.Report, fields DraftFields, revision int) (*db.Report, error) {
	if revision > 0 && revision != existing.Revision {
		return nil, ErrStaleDraft
	}

	var updated db.Report
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&db.Report{}).Where("id = ? AND is_draft = ?", existing.ID, true)
		if revision > 0 {
			query = query.Where("revision = ?", revision)
		}

		result := query.Updates(map[string]interface{}{
			"work_summary":   fields.WorkSummary,
			"key_wins":       fields.KeyWins,
			"challenges":     fields.Challenges,
			"next_week_plan": fields.NextWeekPlan,
			"status":         fields.Status,
			"revision":       gorm.Expr("revision + 1"),
		})
		if result.Error != nil {
			return storeError("update draft", result.Error)
		}
		if result.RowsAffected == 0 {
			if revision > 0 {
				return ErrStaleDraft
			}
			// 读取之后被提交
			return ErrDuplicateSubmission
		}

		if existing.Status != fields.Status {
			if err := recordChange(tx, db.ReportStatusChange{
				ReportID:   existing.ID,
				FromStatus: existing.Status,
				ToStatus:   fields.Status,
				FromState:  db.SubmissionDraft,
				ToState:    db.SubmissionDraft,
				ChangedBy:  existing.EmployeeID,
			}); err != nil {
				return err
			}
		}

		if err := tx.First(&updated, existing.ID).Error; err != nil {
			return storeError("reload draft", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func recordChange(tx *gorm.DB, change db.ReportStatusChange) error {
	if err := tx.Create(&change).Error; err != nil {
		return storeError("record status change", err)
	}
	return nil
}

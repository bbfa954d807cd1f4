package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/agencyops/internal/db"
	"github.com/agencyops/internal/week"
)

// Identity 是调用方的身份，由身份层（会话）解析后显式传入每一个写操作。
type Identity struct {
	UserID uint
	Role   string
}

// IsAdmin 判断是否为管理员
func (i Identity) IsAdmin() bool {
	return i.Role == db.RoleAdmin
}

// ReportKey 是周报的自然键。
type ReportKey struct {
	EmployeeID uint
	ClientID   uint
	ServiceID  uint
	WeekKey    string
}

func (k ReportKey) String() string {
	return fmt.Sprintf("employee=%d client=%d service=%d week=%s", k.EmployeeID, k.ClientID, k.ServiceID, k.WeekKey)
}

// normalize 校验键的各部分并把 WeekKey 归一到周一。
func (k ReportKey) normalize() (ReportKey, error) {
	verr := &ValidationError{}
	if k.EmployeeID == 0 {
		verr.add("employee_id", "is required")
	}
	if k.ClientID == 0 {
		verr.add("client_id", "is required")
	}
	if k.ServiceID == 0 {
		verr.add("service_id", "is required")
	}

	normalized, err := week.Normalize(k.WeekKey)
	if err != nil {
		verr.add("week", "must be a date (YYYY-MM-DD)")
	}
	if !verr.empty() {
		return ReportKey{}, verr
	}

	k.WeekKey = normalized
	return k, nil
}

// DraftFields 是周报中可反复修改的自由文本与状态。
type DraftFields struct {
	WorkSummary  string `json:"work_summary"`
	KeyWins      string `json:"key_wins"`
	Challenges   string `json:"challenges"`
	NextWeekPlan string `json:"next_week_plan"`
	Status       string `json:"status"`
}

func (f DraftFields) trimmed() DraftFields {
	return DraftFields{
		WorkSummary:  strings.TrimSpace(f.WorkSummary),
		KeyWins:      strings.TrimSpace(f.KeyWins),
		Challenges:   strings.TrimSpace(f.Challenges),
		NextWeekPlan: strings.TrimSpace(f.NextWeekPlan),
		Status:       strings.TrimSpace(strings.ToLower(f.Status)),
	}
}

func fieldsOf(report *db.Report) DraftFields {
	return DraftFields{
		WorkSummary:  report.WorkSummary,
		KeyWins:      report.KeyWins,
		Challenges:   report.Challenges,
		NextWeekPlan: report.NextWeekPlan,
		Status:       report.Status,
	}
}

// ReportStatuses 是允许的周报状态。
var ReportStatuses = []string{db.ReportStatusOnTrack, db.ReportStatusNeedsAttention, db.ReportStatusDelayed}

// checkDraftStatus 草稿可以不带状态，带了就必须合法
func checkDraftStatus(fields DraftFields) error {
	if fields.Status != "" && !validStatus(fields.Status) {
		return invalidField("status", "must be one of on_track, needs_attention, delayed")
	}
	return nil
}

func validStatus(status string) bool {
	for _, s := range ReportStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ReportInput 是员工侧保存草稿或提交时的输入；EmployeeID 始终取自 Identity。
type ReportInput struct {
	ClientID  uint
	ServiceID uint
	WeekKey   string // 任意日期，归一到周一；为空时取当前周
	Fields    DraftFields
	Revision  int
	Metrics   []byte // 原始 JSON，仅提交时使用
}

func (in ReportInput) keyFor(who Identity, now time.Time) ReportKey {
	weekKey := strings.TrimSpace(in.WeekKey)
	if weekKey == "" {
		weekKey = week.Key(now)
	}
	return ReportKey{
		EmployeeID: who.UserID,
		ClientID:   in.ClientID,
		ServiceID:  in.ServiceID,
		WeekKey:    weekKey,
	}
}

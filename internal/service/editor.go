package service

import (
	"context"
	"errors"

	"github.com/agencyops/internal/db"
	"github.com/agencyops/internal/metrics"
	"github.com/agencyops/internal/week"
	"golang.org/x/sync/errgroup"
)

// ErrAutoSaveDisabled 未配置自动保存调度器
var ErrAutoSaveDisabled = errors.New("autosave is not configured")

// EditorState 是打开周报编辑页所需的全部数据
type EditorState struct {
	WeekKey    string
	WeekEnd    string
	State      ReportState
	Assignment AssignmentView
	Draft      *db.Report
	Submitted  *db.Report
	History    []db.Report
	Schema     *metrics.Schema
}

// LoadEditor 并行读取分配、当前草稿与历史周报，三者之间没有先后依赖。
func (s *ReportService) LoadEditor(ctx context.Context, who Identity, input ReportInput) (*EditorState, error) {
	key, err := input.keyFor(who, s.now()).normalize()
	if err != nil {
		return nil, err
	}

	var (
		assignments  []AssignmentView
		draft, final *db.Report
		history      []db.Report
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		assignments, err = s.assignments.ListForEmployee(gctx, key.EmployeeID)
		return err
	})
	g.Go(func() error {
		var err error
		draft, final, err = s.drafts.lookup(gctx, key)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.History(gctx, key.EmployeeID, key.ClientID, key.ServiceID, 8)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	state := &EditorState{WeekKey: key.WeekKey, History: history}
	if start, err := week.Parse(key.WeekKey); err == nil {
		state.WeekEnd = week.End(start).Format(week.KeyLayout)
	}

	found := false
	for _, a := range assignments {
		if a.ClientID == key.ClientID && a.ServiceID == key.ServiceID {
			state.Assignment = a
			found = true
			break
		}
	}
	if !found {
		return nil, ErrNotAssigned
	}

	state.Draft = draft
	state.Submitted = final
	state.State = stateOf(draft, final)
	if schema, ok := metrics.SchemaFor(state.Assignment.Category); ok {
		state.Schema = &schema
	}
	return state, nil
}

// OpenSession 为员工打开编辑会话，开始周期性自动保存；已提交的周不能再编辑。
func (s *ReportService) OpenSession(ctx context.Context, who Identity, input ReportInput) (*EditingSession, error) {
	if s.autosave == nil {
		return nil, ErrAutoSaveDisabled
	}

	key, err := input.keyFor(who, s.now()).normalize()
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

	return s.autosave.Open(ctx, key)
}

// UpdateSession 更新会话中的表单快照，状态不合法时直接拒绝。
func (s *ReportService) UpdateSession(who Identity, sessionID string, fields DraftFields) (*EditingSession, error) {
	sess, err := s.ownedSession(who, sessionID)
	if err != nil {
		return nil, err
	}
	if err := checkDraftStatus(fields.trimmed()); err != nil {
		return nil, err
	}
	if err := sess.Update(fields); err != nil {
		return nil, err
	}
	return sess, nil
}

// CloseSession 结束编辑会话（离开页面或取消）
func (s *ReportService) CloseSession(who Identity, sessionID string) error {
	if _, err := s.ownedSession(who, sessionID); err != nil {
		return err
	}
	return s.autosave.Close(sessionID)
}

// Session 返回属于当前员工的会话
func (s *ReportService) Session(who Identity, sessionID string) (*EditingSession, error) {
	return s.ownedSession(who, sessionID)
}

func (s *ReportService) ownedSession(who Identity, sessionID string) (*EditingSession, error) {
	if s.autosave == nil {
		return nil, ErrAutoSaveDisabled
	}
	sess, err := s.autosave.Session(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Owner() != who.UserID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

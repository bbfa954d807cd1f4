package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/agencyops/internal/db"
	"github.com/agencyops/internal/logger"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultAutoSaveInterval 是编辑会话自动保存的默认间隔
	DefaultAutoSaveInterval = 30 * time.Second
	autoSaveTimeout         = 10 * time.Second
)

var (
	// ErrSessionNotFound 编辑会话不存在或已关闭
	ErrSessionNotFound = errors.New("editing session not found")
)

type draftWriter interface {
	LoadDraft(ctx context.Context, key ReportKey) (*db.Report, error)
	UpsertDraft(ctx context.Context, input DraftInput) (*db.Report, error)
}

// AutoSaver 为每个编辑会话注册一个固定间隔的定时任务，把内存中的表单快照写入草稿。
// 失败只记录日志，等待下一次触发；会话关闭后不会再写入。
type AutoSaver struct {
	store     draftWriter
	interval  time.Duration
	scheduler *cron.Cron
	log       logrus.FieldLogger

	mu       sync.Mutex
	sessions map[string]*EditingSession
}

// EditingSession 是一次周报编辑会话，持有最新的表单快照。
type EditingSession struct {
	ID       string
	Key      ReportKey
	OpenedAt time.Time

	mu           sync.Mutex
	fields       DraftFields
	version      uint64
	savedVersion uint64
	reportID     uint
	lastSavedAt  time.Time
	lastErr      error
	closed       bool
	entryID      cron.EntryID
}

// SessionSnapshot 是会话的只读视图
type SessionSnapshot struct {
	ID          string      `json:"id"`
	WeekKey     string      `json:"week"`
	ClientID    uint        `json:"client_id"`
	ServiceID   uint        `json:"service_id"`
	Fields      DraftFields `json:"fields"`
	Dirty       bool        `json:"dirty"`
	ReportID    uint        `json:"report_id,omitempty"`
	LastSavedAt *time.Time  `json:"last_saved_at,omitempty"`
	LastError   string      `json:"last_error,omitempty"`
	Closed      bool        `json:"closed"`
}

// NewAutoSaver 构造并启动调度器；interval 小于 1 秒时使用默认值。
func NewAutoSaver(store draftWriter, interval time.Duration, log logrus.FieldLogger) *AutoSaver {
	if interval < time.Second {
		interval = DefaultAutoSaveInterval
	}
	if log == nil {
		log = logger.Discard()
	}

	scheduler := cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(log))))
	scheduler.Start()

	return &AutoSaver{
		store:     store,
		interval:  interval,
		scheduler: scheduler,
		log:       log,
		sessions:  make(map[string]*EditingSession),
	}
}

// Interval 返回自动保存间隔
func (a *AutoSaver) Interval() time.Duration {
	return a.interval
}

// Open 打开编辑会话；已有草稿时用草稿内容填充表单快照。
func (a *AutoSaver) Open(ctx context.Context, key ReportKey) (*EditingSession, error) {
	key, err := key.normalize()
	if err != nil {
		return nil, err
	}

	draft, err := a.store.LoadDraft(ctx, key)
	if err != nil {
		return nil, err
	}

	sess := &EditingSession{
		ID:       uuid.NewString(),
		Key:      key,
		OpenedAt: time.Now(),
	}
	if draft != nil {
		sess.fields = fieldsOf(draft)
		sess.reportID = draft.ID
	}

	// 同一会话的两次触发不会重叠
	job := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).
		Then(cron.FuncJob(func() { a.tick(sess) }))

	a.mu.Lock()
	sess.entryID = a.scheduler.Schedule(cron.Every(a.interval), job)
	a.sessions[sess.ID] = sess
	a.mu.Unlock()

	a.log.WithFields(logrus.Fields{"session": sess.ID, "key": key.String()}).Debug("autosave session opened")
	return sess, nil
}

// Session 按 ID 查找会话
func (a *AutoSaver) Session(id string) (*EditingSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sess, ok := a.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Close 停止会话的定时任务，之后不会再写入
func (a *AutoSaver) Close(id string) error {
	a.mu.Lock()
	sess, ok := a.sessions[id]
	if ok {
		delete(a.sessions, id)
	}
	a.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	a.stop(sess)
	return nil
}

// StopKey 关闭指定键下的所有会话（例如提交成功后），返回关闭数量
func (a *AutoSaver) StopKey(key ReportKey) int {
	if normalized, err := key.normalize(); err == nil {
		key = normalized
	}

	a.mu.Lock()
	var matched []*EditingSession
	for id, sess := range a.sessions {
		if sess.Key == key {
			matched = append(matched, sess)
			delete(a.sessions, id)
		}
	}
	a.mu.Unlock()

	for _, sess := range matched {
		a.stop(sess)
	}
	return len(matched)
}

// ActiveSessions 返回当前打开的会话数量
func (a *AutoSaver) ActiveSessions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sessions)
}

// Shutdown 关闭所有会话并等待正在执行的保存结束
func (a *AutoSaver) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	sessions := make([]*EditingSession, 0, len(a.sessions))
	for id, sess := range a.sessions {
		sessions = append(sessions, sess)
		delete(a.sessions, id)
	}
	a.mu.Unlock()

	for _, sess := range sessions {
		a.stop(sess)
	}

	done := a.scheduler.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *AutoSaver) stop(sess *EditingSession) {
	sess.mu.Lock()
	sess.closed = true
	entryID := sess.entryID
	sess.mu.Unlock()

	a.scheduler.Remove(entryID)
	a.log.WithField("session", sess.ID).Debug("autosave session closed")
}

func (a *AutoSaver) tick(sess *EditingSession) {
	err := a.save(sess)
	if err == nil {
		return
	}

	entry := a.log.WithError(err).WithFields(logrus.Fields{"session": sess.ID, "key": sess.Key.String()})
	if errors.Is(err, ErrDuplicateSubmission) {
		// 该键已经提交，继续保存没有意义
		entry.Info("report already submitted, closing autosave session")
		_ = a.Close(sess.ID)
		return
	}
	entry.Warn("autosave failed, will retry on next tick")
}

// save 在快照有变化时写入草稿；未变化或已关闭时直接返回。
func (a *AutoSaver) save(sess *EditingSession) error {
	sess.mu.Lock()
	if sess.closed || sess.version == sess.savedVersion {
		sess.mu.Unlock()
		return nil
	}
	fields := sess.fields
	version := sess.version
	key := sess.Key
	sess.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), autoSaveTimeout)
	defer cancel()

	report, err := a.store.UpsertDraft(ctx, DraftInput{Key: key, Fields: fields})

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err != nil {
		sess.lastErr = err
		return err
	}

	if version > sess.savedVersion {
		sess.savedVersion = version
	}
	sess.reportID = report.ID
	sess.lastSavedAt = time.Now()
	sess.lastErr = nil
	return nil
}

// Update 替换会话的表单快照，下一次触发时写入
func (s *EditingSession) Update(fields DraftFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionNotFound
	}
	s.fields = fields
	s.version++
	return nil
}

// Snapshot 返回会话当前状态
func (s *EditingSession) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SessionSnapshot{
		ID:        s.ID,
		WeekKey:   s.Key.WeekKey,
		ClientID:  s.Key.ClientID,
		ServiceID: s.Key.ServiceID,
		Fields:    s.fields,
		Dirty:     s.version != s.savedVersion,
		ReportID:  s.reportID,
		Closed:    s.closed,
	}
	if !s.lastSavedAt.IsZero() {
		saved := s.lastSavedAt
		snap.LastSavedAt = &saved
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}

// Owner 返回会话所属员工
func (s *EditingSession) Owner() uint {
	return s.Key.EmployeeID
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/agencyops/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportService_SubmitLinkedInWeek(t *testing.T) {
	f := newReportFixture(t, "linkedin_outreach")
	sink := &recordingSink{}
	svc := f.reportService(sink)
	ctx := context.Background()

	_, err := svc.SaveDraft(ctx, f.who(), f.input("2024-01-08", DraftFields{WorkSummary: "half done"}))
	require.NoError(t, err)

	state, err := svc.State(ctx, f.key("2024-01-08"))
	require.NoError(t, err)
	assert.Equal(t, StateDrafting, state)

	input := f.input("2024-01-11", DraftFields{
		WorkSummary: "Sent connection requests to CTOs",
		KeyWins:     "Booked an intro call",
		Status:      db.ReportStatusOnTrack,
	})
	input.Metrics = []byte(linkedInMetrics)

	report, err := svc.Submit(ctx, f.who(), input)
	require.NoError(t, err)
	assert.False(t, report.IsDraft)
	assert.Equal(t, "2024-01-08", report.WeekKey)
	assert.Equal(t, "Sent connection requests to CTOs", report.WorkSummary)
	require.NotNil(t, report.Metrics)
	assert.Equal(t, "linkedin_outreach", report.Metrics.Category)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(report.Metrics.Payload, &payload))
	assert.EqualValues(t, 50, payload["connections_sent"])
	assert.EqualValues(t, 1, payload["meetings_booked"])
	meetings, ok := payload["meetings"].([]interface{})
	require.True(t, ok)
	require.Len(t, meetings, 1)
	assert.Equal(t, "Intro call", meetings[0].(map[string]interface{})["description"])

	assert.EqualValues(t, 1, countReports(t, f.db, "1 = 1"), "draft row is promoted, not duplicated")
	assert.Equal(t, 1, sink.count())

	state, err = svc.State(ctx, f.key("2024-01-14"))
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, state)

	_, err = svc.Submit(ctx, f.who(), input)
	require.ErrorIs(t, err, ErrDuplicateSubmission)
	assert.Equal(t, 1, sink.count())

	changes, err := svc.StatusHistory(ctx, f.who(), report.ID)
	require.NoError(t, err)
	require.NotEmpty(t, changes)
	last := changes[len(changes)-1]
	assert.Equal(t, db.SubmissionDraft, last.FromState)
	assert.Equal(t, db.SubmissionSubmitted, last.ToState)
}

func TestReportService_SubmitRollsBackOnPromoteFailure(t *testing.T) {
	f := newReportFixture(t, "linkedin_outreach")
	sink := &recordingSink{}
	svc := f.reportService(sink)
	ctx := context.Background()

	_, err := svc.SaveDraft(ctx, f.who(), f.input("2024-01-08", DraftFields{WorkSummary: "half done"}))
	require.NoError(t, err)

	// 去掉状态历史表，让事务在指标写入之后、提升时失败
	require.NoError(t, f.db.Migrator().DropTable(&db.ReportStatusChange{}))

	input := f.input("2024-01-08", DraftFields{WorkSummary: "Sent connection requests", Status: db.ReportStatusOnTrack})
	input.Metrics = []byte(linkedInMetrics)

	_, err = svc.Submit(ctx, f.who(), input)
	require.Error(t, err)
	assert.Equal(t, 0, sink.count())

	var metricsRows int64
	require.NoError(t, f.db.Model(&db.ReportMetrics{}).Count(&metricsRows).Error)
	assert.Zero(t, metricsRows, "metrics write is rolled back")

	state, err := svc.State(ctx, f.key("2024-01-08"))
	require.NoError(t, err)
	assert.Equal(t, StateDrafting, state)

	draft, err := NewDraftStore(f.db).LoadDraft(ctx, f.key("2024-01-08"))
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, "half done", draft.WorkSummary)

	// 恢复后重试成功
	require.NoError(t, f.db.AutoMigrate(&db.ReportStatusChange{}))
	report, err := svc.Submit(ctx, f.who(), input)
	require.NoError(t, err)
	assert.False(t, report.IsDraft)
	assert.Equal(t, draft.ID, report.ID)
	require.NotNil(t, report.Metrics)
	assert.Equal(t, 1, sink.count())
}

func TestReportService_SubmitWithoutDraft(t *testing.T) {
	f := newReportFixture(t, "linkedin_outreach")
	svc := f.reportService(nil)

	input := f.input("2024-02-05", DraftFields{WorkSummary: "direct", Status: db.ReportStatusDelayed})
	input.Metrics = []byte(linkedInMetrics)

	report, err := svc.Submit(context.Background(), f.who(), input)
	require.NoError(t, err)
	assert.False(t, report.IsDraft)
	assert.EqualValues(t, 1, countReports(t, f.db, "week_key = ?", "2024-02-05"))
}

func TestReportService_SubmitMissingMetricField(t *testing.T) {
	f := newReportFixture(t, "linkedin_outreach")
	svc := f.reportService(nil)
	ctx := context.Background()

	_, err := svc.SaveDraft(ctx, f.who(), f.input("2024-01-08", DraftFields{WorkSummary: "wip"}))
	require.NoError(t, err)

	input := f.input("2024-01-08", DraftFields{WorkSummary: "done", Status: db.ReportStatusOnTrack})
	input.Metrics = []byte(`{"connections_sent": 50, "connections_accepted": 12, "responses_received": 5, "positive_responses": 3}`)

	_, err = svc.Submit(ctx, f.who(), input)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.FieldNames(), "meetings_booked")

	draft, err := NewDraftStore(f.db).LoadDraft(ctx, f.key("2024-01-08"))
	require.NoError(t, err)
	require.NotNil(t, draft, "draft survives a failed submission")
	assert.Equal(t, "wip", draft.WorkSummary)

	var metricsRows int64
	require.NoError(t, f.db.Model(&db.ReportMetrics{}).Count(&metricsRows).Error)
	assert.Zero(t, metricsRows)
}

func TestReportService_SubmitValidatesFreeText(t *testing.T) {
	f := newReportFixture(t, "linkedin_outreach")
	svc := f.reportService(nil)

	input := f.input("2024-01-08", DraftFields{WorkSummary: "   ", Status: "fine"})
	input.Metrics = []byte(linkedInMetrics)

	_, err := svc.Submit(context.Background(), f.who(), input)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t, []string{"work_summary", "status"}, verr.FieldNames())
	assert.EqualValues(t, 0, countReports(t, f.db, "1 = 1"))
}

func TestReportService_SubmitCategoryWithoutSchema(t *testing.T) {
	f := newReportFixture(t, "content_writing")
	svc := f.reportService(nil)

	input := f.input("2024-01-08", DraftFields{WorkSummary: "Wrote two articles", Status: db.ReportStatusOnTrack})
	input.Metrics = []byte(`{"anything": "ignored"}`)

	report, err := svc.Submit(context.Background(), f.who(), input)
	require.NoError(t, err)
	assert.False(t, report.IsDraft)
	assert.Nil(t, report.Metrics)
}

func TestReportService_SubmitRequiresAssignment(t *testing.T) {
	f := newReportFixture(t, "linkedin_outreach")
	svc := f.reportService(nil)

	other := db.Service{Name: "SEO", Category: "seo"}
	require.NoError(t, f.db.Create(&other).Error)

	input := ReportInput{ClientID: f.client.ID, ServiceID: other.ID, WeekKey: "2024-01-08", Fields: DraftFields{WorkSummary: "x", Status: "on_track"}}
	_, err := svc.Submit(context.Background(), f.who(), input)
	require.ErrorIs(t, err, ErrNotAssigned)

	_, err = svc.SaveDraft(context.Background(), f.who(), input)
	require.ErrorIs(t, err, ErrNotAssigned)
}

func TestReportService_NotificationFailureDoesNotFailSubmit(t *testing.T) {
	f := newReportFixture(t, "content_writing")
	sink := &recordingSink{err: errors.New("smtp down")}
	svc := f.reportService(sink)

	report, err := svc.Submit(context.Background(), f.who(), f.input("2024-01-08", DraftFields{WorkSummary: "x", Status: "on_track"}))
	require.NoError(t, err)
	assert.False(t, report.IsDraft)
	assert.Equal(t, 1, sink.count())
}

func TestReportService_SubmitWritesNotification(t *testing.T) {
	f := newReportFixture(t, "content_writing")
	notifications := NewNotificationService(f.db)
	svc := f.reportService(notifications)
	ctx := context.Background()

	_, err := svc.Submit(ctx, f.who(), f.input("2024-01-08", DraftFields{WorkSummary: "x", Status: "on_track"}))
	require.NoError(t, err)

	list, err := notifications.ListForRecipient(ctx, f.employee.ID, true, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Contains(t, list[0].Message, "Acme")
	assert.Contains(t, list[0].Message, "2024-01-08")
}

func TestReportService_GetEnforcesOwnership(t *testing.T) {
	f := newReportFixture(t, "content_writing")
	svc := f.reportService(nil)
	ctx := context.Background()

	report, err := svc.Submit(ctx, f.who(), f.input("2024-01-08", DraftFields{WorkSummary: "x", Status: "on_track"}))
	require.NoError(t, err)

	stranger := db.User{Username: "bob", Password: "x", Role: db.RoleEmployee}
	require.NoError(t, f.db.Create(&stranger).Error)

	_, err = svc.Get(ctx, Identity{UserID: stranger.ID, Role: db.RoleEmployee}, report.ID)
	require.ErrorIs(t, err, ErrForbidden)

	got, err := svc.Get(ctx, Identity{UserID: f.admin.ID, Role: db.RoleAdmin}, report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.ID, got.ID)

	_, err = svc.Get(ctx, f.who(), 9999)
	require.ErrorIs(t, err, ErrReportNotFound)
}

func TestReportService_ListAndStaleDrafts(t *testing.T) {
	f := newReportFixture(t, "content_writing")
	svc := f.reportService(nil)
	ctx := context.Background()

	for _, wk := range []string{"2024-01-01", "2024-01-08"} {
		_, err := svc.Submit(ctx, f.who(), f.input(wk, DraftFields{WorkSummary: "x", Status: "on_track"}))
		require.NoError(t, err)
	}
	_, err := svc.SaveDraft(ctx, f.who(), f.input("2024-01-15", DraftFields{WorkSummary: "pending"}))
	require.NoError(t, err)

	result, err := svc.List(ctx, ReportFilter{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, result.Total)
	assert.EqualValues(t, 2, result.SubmittedCount)
	assert.EqualValues(t, 1, result.DraftCount)
	assert.Equal(t, 2, result.TotalPages)
	require.Len(t, result.Reports, 2)
	assert.Equal(t, "2024-01-15", result.Reports[0].WeekKey)

	submitted := false
	result, err = svc.List(ctx, ReportFilter{Draft: &submitted, WeekFrom: "2024-01-03"})
	require.NoError(t, err)
	require.Len(t, result.Reports, 1)
	assert.Equal(t, "2024-01-08", result.Reports[0].WeekKey)

	stale, err := svc.ListStaleDrafts(ctx, time.Date(2024, 1, 24, 12, 0, 0, 0, time.Local))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "2024-01-15", stale[0].WeekKey)

	stale, err = svc.ListStaleDrafts(ctx, time.Date(2024, 1, 17, 12, 0, 0, 0, time.Local))
	require.NoError(t, err)
	assert.Empty(t, stale, "current week draft is not stale")

	history, err := svc.History(ctx, f.employee.ID, f.client.ID, f.service.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2024-01-08", history[0].WeekKey)
}

func TestReportService_EmptyWeekUsesCurrentWeek(t *testing.T) {
	f := newReportFixture(t, "content_writing")
	svc := f.reportService(nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 7, 9, 0, 0, 0, time.Local) }

	draft, err := svc.SaveDraft(context.Background(), f.who(), f.input("", DraftFields{WorkSummary: "x"}))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04", draft.WeekKey)
}

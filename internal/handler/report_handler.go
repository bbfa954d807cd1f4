package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/agencyops/internal/db"
	"github.com/agencyops/internal/service"
	"github.com/gin-gonic/gin"
)

type reportRequest struct {
	ClientID     uint            `json:"client_id"`
	ServiceID    uint            `json:"service_id"`
	Week         string          `json:"week"`
	WorkSummary  string          `json:"work_summary"`
	KeyWins      string          `json:"key_wins"`
	Challenges   string          `json:"challenges"`
	NextWeekPlan string          `json:"next_week_plan"`
	Status       string          `json:"status"`
	Revision     int             `json:"revision"`
	Metrics      json.RawMessage `json:"metrics"`
}

func (r reportRequest) input() service.ReportInput {
	return service.ReportInput{
		ClientID:  r.ClientID,
		ServiceID: r.ServiceID,
		WeekKey:   r.Week,
		Revision:  r.Revision,
		Metrics:   []byte(r.Metrics),
		Fields: service.DraftFields{
			WorkSummary:  r.WorkSummary,
			KeyWins:      r.KeyWins,
			Challenges:   r.Challenges,
			NextWeekPlan: r.NextWeekPlan,
			Status:       r.Status,
		},
	}
}

// SaveDraft 手动保存草稿
func (a *API) SaveDraft(c *gin.Context) {
	var req reportRequest
	if !bindJSON(c, &req, "请求格式不正确") {
		return
	}

	report, err := a.reports.SaveDraft(c.Request.Context(), currentIdentity(c), req.input())
	if err != nil {
		a.handleReportError(c, err, "保存草稿失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "草稿已保存", "report": reportResponse(report, false)})
}

// SubmitReport 提交周报
func (a *API) SubmitReport(c *gin.Context) {
	var req reportRequest
	if !bindJSON(c, &req, "请求格式不正确") {
		return
	}

	report, err := a.reports.Submit(c.Request.Context(), currentIdentity(c), req.input())
	if err != nil {
		a.handleReportError(c, err, "提交周报失败")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "周报已提交", "report": reportResponse(report, false)})
}

// GetReport 返回周报详情，自由文本附带渲染后的 HTML
func (a *API) GetReport(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的周报ID")
		return
	}

	who := currentIdentity(c)
	report, err := a.reports.Get(c.Request.Context(), who, id)
	if err != nil {
		a.handleReportError(c, err, "获取周报失败")
		return
	}

	changes, err := a.reports.StatusHistory(c.Request.Context(), who, id)
	if err != nil {
		a.handleReportError(c, err, "获取周报失败")
		return
	}

	history := make([]gin.H, 0, len(changes))
	for _, change := range changes {
		history = append(history, gin.H{
			"from_status": change.FromStatus,
			"to_status":   change.ToStatus,
			"from_state":  change.FromState,
			"to_state":    change.ToState,
			"changed_by":  change.ChangedBy,
			"created_at":  change.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"report": reportResponse(report, true), "status_history": history})
}

// MyReports 返回当前员工的周报（含草稿）
func (a *API) MyReports(c *gin.Context) {
	filter := service.ReportFilter{
		EmployeeID: currentIdentity(c).UserID,
		ClientID:   parseUintQuery(c, "client_id"),
		ServiceID:  parseUintQuery(c, "service_id"),
		WeekFrom:   c.Query("from"),
		WeekTo:     c.Query("to"),
		Draft:      parseBoolQuery(c, "draft"),
		Page:       parseIntQuery(c, "page", 1),
		PerPage:    parseIntQuery(c, "per_page", 20),
	}
	a.respondReportList(c, filter)
}

// ListReports 后台周报列表
func (a *API) ListReports(c *gin.Context) {
	filter := service.ReportFilter{
		EmployeeID: parseUintQuery(c, "employee_id"),
		ClientID:   parseUintQuery(c, "client_id"),
		ServiceID:  parseUintQuery(c, "service_id"),
		WeekFrom:   c.Query("from"),
		WeekTo:     c.Query("to"),
		Status:     c.Query("status"),
		Draft:      parseBoolQuery(c, "draft"),
		Page:       parseIntQuery(c, "page", 1),
		PerPage:    parseIntQuery(c, "per_page", 20),
	}
	a.respondReportList(c, filter)
}

func (a *API) respondReportList(c *gin.Context, filter service.ReportFilter) {
	result, err := a.reports.List(c.Request.Context(), filter)
	if err != nil {
		a.handleReportError(c, err, "获取周报列表失败")
		return
	}

	items := make([]gin.H, 0, len(result.Reports))
	for i := range result.Reports {
		items = append(items, reportResponse(&result.Reports[i], false))
	}

	c.JSON(http.StatusOK, gin.H{
		"reports":         items,
		"total":           result.Total,
		"submitted_count": result.SubmittedCount,
		"draft_count":     result.DraftCount,
		"page":            result.Page,
		"per_page":        result.PerPage,
		"total_pages":     result.TotalPages,
	})
}

// ListStaleDrafts 返回早于本周仍未提交的草稿
func (a *API) ListStaleDrafts(c *gin.Context) {
	drafts, err := a.reports.ListStaleDrafts(c.Request.Context(), time.Now())
	if err != nil {
		a.handleReportError(c, err, "获取未提交草稿失败")
		return
	}

	items := make([]gin.H, 0, len(drafts))
	for i := range drafts {
		items = append(items, reportResponse(&drafts[i], false))
	}
	c.JSON(http.StatusOK, gin.H{"drafts": items})
}

// GetEditor 返回编辑页所需的数据：周键、分配、草稿、历史与指标 schema
func (a *API) GetEditor(c *gin.Context) {
	input := service.ReportInput{
		ClientID:  parseUintQuery(c, "client_id"),
		ServiceID: parseUintQuery(c, "service_id"),
		WeekKey:   c.Query("week"),
	}

	state, err := a.reports.LoadEditor(c.Request.Context(), currentIdentity(c), input)
	if err != nil {
		a.handleReportError(c, err, "加载编辑页失败")
		return
	}

	history := make([]gin.H, 0, len(state.History))
	for i := range state.History {
		history = append(history, reportResponse(&state.History[i], false))
	}

	response := gin.H{
		"week":       state.WeekKey,
		"week_end":   state.WeekEnd,
		"state":      state.State,
		"assignment": state.Assignment,
		"history":    history,
		"schema":     state.Schema,
		"draft":      nil,
		"submitted":  nil,
	}
	if state.Draft != nil {
		response["draft"] = reportResponse(state.Draft, false)
	}
	if state.Submitted != nil {
		response["submitted"] = reportResponse(state.Submitted, false)
	}

	c.JSON(http.StatusOK, response)
}

func reportResponse(report *db.Report, withHTML bool) gin.H {
	item := gin.H{
		"id":               report.ID,
		"employee_id":      report.EmployeeID,
		"client_id":        report.ClientID,
		"service_id":       report.ServiceID,
		"week":             report.WeekKey,
		"work_summary":     report.WorkSummary,
		"key_wins":         report.KeyWins,
		"challenges":       report.Challenges,
		"next_week_plan":   report.NextWeekPlan,
		"status":           report.Status,
		"is_draft":         report.IsDraft,
		"submission_state": report.SubmissionState,
		"revision":         report.Revision,
		"submitted_at":     report.SubmittedAt,
		"updated_at":       report.UpdatedAt,
		"metrics":          nil,
	}
	if report.Metrics != nil {
		item["metrics"] = gin.H{
			"category": report.Metrics.Category,
			"kind":     report.Metrics.Kind,
			"values":   json.RawMessage(report.Metrics.Payload),
		}
	}

	if withHTML {
		for field, text := range map[string]string{
			"work_summary_html":   report.WorkSummary,
			"key_wins_html":       report.KeyWins,
			"challenges_html":     report.Challenges,
			"next_week_plan_html": report.NextWeekPlan,
		} {
			rendered, err := renderMarkdown(text)
			if err != nil {
				rendered = sanitizer.Sanitize(text)
			}
			item[field] = rendered
		}
	}
	return item
}

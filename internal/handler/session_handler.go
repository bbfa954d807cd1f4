package handler

import (
	"net/http"

	"github.com/agencyops/internal/service"
	"github.com/gin-gonic/gin"
)

type sessionOpenRequest struct {
	ClientID  uint   `json:"client_id"`
	ServiceID uint   `json:"service_id"`
	Week      string `json:"week"`
}

// OpenSession 打开编辑会话，服务端按固定间隔自动保存
func (a *API) OpenSession(c *gin.Context) {
	var req sessionOpenRequest
	if !bindJSON(c, &req, "请求格式不正确") {
		return
	}

	sess, err := a.reports.OpenSession(c.Request.Context(), currentIdentity(c), service.ReportInput{
		ClientID:  req.ClientID,
		ServiceID: req.ServiceID,
		WeekKey:   req.Week,
	})
	if err != nil {
		a.handleReportError(c, err, "打开编辑会话失败")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session":          sess.Snapshot(),
		"autosave_seconds": int(a.autosave.Interval().Seconds()),
	})
}

// UpdateSession 更新会话中的表单快照，下一次自动保存时写入草稿
func (a *API) UpdateSession(c *gin.Context) {
	var fields service.DraftFields
	if !bindJSON(c, &fields, "请求格式不正确") {
		return
	}

	sess, err := a.reports.UpdateSession(currentIdentity(c), c.Param("id"), fields)
	if err != nil {
		a.handleReportError(c, err, "更新编辑会话失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": sess.Snapshot()})
}

// GetSession 返回会话状态（是否有未保存的修改、上次保存时间）
func (a *API) GetSession(c *gin.Context) {
	sess, err := a.reports.Session(currentIdentity(c), c.Param("id"))
	if err != nil {
		a.handleReportError(c, err, "获取编辑会话失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": sess.Snapshot()})
}

// CloseSession 关闭编辑会话
func (a *API) CloseSession(c *gin.Context) {
	if err := a.reports.CloseSession(currentIdentity(c), c.Param("id")); err != nil {
		a.handleReportError(c, err, "关闭编辑会话失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "编辑会话已关闭"})
}

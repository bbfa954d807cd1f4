package handler

import (
	"errors"
	"net/http"

	"github.com/agencyops/internal/service"
	"github.com/gin-gonic/gin"
)

// ListNotifications 返回当前用户的通知，unread=true 时只返回未读
func (a *API) ListNotifications(c *gin.Context) {
	who := currentIdentity(c)
	unreadOnly := false
	if flag := parseBoolQuery(c, "unread"); flag != nil {
		unreadOnly = *flag
	}

	notifications, err := a.notifications.ListForRecipient(c.Request.Context(), who.UserID, unreadOnly, parseIntQuery(c, "limit", 20))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取通知失败")
		return
	}

	unread, err := a.notifications.UnreadCount(c.Request.Context(), who.UserID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取通知失败")
		return
	}

	items := make([]gin.H, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, gin.H{
			"id":         n.ID,
			"title":      n.Title,
			"message":    n.Message,
			"severity":   n.Severity,
			"read":       n.ReadAt != nil,
			"created_at": n.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"notifications": items, "unread": unread})
}

// MarkNotificationRead 标记通知为已读
func (a *API) MarkNotificationRead(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的通知ID")
		return
	}

	if err := a.notifications.MarkRead(c.Request.Context(), currentIdentity(c).UserID, id); err != nil {
		if errors.Is(err, service.ErrNotificationNotFound) {
			respondError(c, http.StatusNotFound, "通知不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "更新通知失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "已标记为已读"})
}

package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/agencyops/internal/service"
	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func respondErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": message, "code": code})
}

func respondValidation(c *gin.Context, verr *service.ValidationError) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error":  "提交内容不完整或格式不正确",
		"code":   "validation_failed",
		"fields": verr.Fields,
	})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

// parseUintQuery 解析可选的数字查询参数，缺省或非法时返回 0。
func parseUintQuery(c *gin.Context, key string) uint {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0
	}
	return uint(parsed)
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBoolQuery(c *gin.Context, key string) *bool {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &parsed
}

// handleReportError 把周报流程中的错误映射为 HTTP 响应。
func (a *API) handleReportError(c *gin.Context, err error, fallback string) {
	var verr *service.ValidationError
	var storeErr *service.StoreError

	switch {
	case errors.As(err, &verr):
		respondValidation(c, verr)
	case errors.Is(err, service.ErrDuplicateSubmission):
		respondErrorCode(c, http.StatusConflict, "duplicate_submission", "本周的周报已经提交，不能重复提交或修改")
	case errors.Is(err, service.ErrStaleDraft):
		respondErrorCode(c, http.StatusConflict, "stale_draft", "草稿已在其他窗口中修改，请刷新后重试")
	case errors.Is(err, service.ErrNotAssigned):
		respondErrorCode(c, http.StatusForbidden, "not_assigned", "你没有被分配到该客户的这项服务")
	case errors.Is(err, service.ErrForbidden):
		respondErrorCode(c, http.StatusForbidden, "forbidden", "无权访问该周报")
	case errors.Is(err, service.ErrReportNotFound), errors.Is(err, service.ErrDraftNotFound):
		respondErrorCode(c, http.StatusNotFound, "not_found", "周报不存在")
	case errors.Is(err, service.ErrServiceNotFound):
		respondErrorCode(c, http.StatusNotFound, "not_found", "服务不存在")
	case errors.Is(err, service.ErrSessionNotFound):
		respondErrorCode(c, http.StatusNotFound, "session_not_found", "编辑会话不存在或已关闭")
	case errors.Is(err, service.ErrIntegrityViolation):
		a.log.WithError(err).Error("report integrity violation")
		respondErrorCode(c, http.StatusInternalServerError, "integrity", "周报数据存在冲突，请联系管理员")
	case errors.As(err, &storeErr):
		a.log.WithError(err).Warn("report store failure")
		respondErrorCode(c, http.StatusServiceUnavailable, "store_unavailable", "保存失败，请稍后重试")
	default:
		a.log.WithError(err).Error(fallback)
		respondError(c, http.StatusInternalServerError, fallback)
	}
}

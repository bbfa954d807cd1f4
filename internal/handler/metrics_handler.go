package handler

import (
	"net/http"
	"strings"

	"github.com/agencyops/internal/metrics"
	"github.com/gin-gonic/gin"
)

// ListMetricSchemas 返回全部已定义的指标 schema
func (a *API) ListMetricSchemas(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"schemas": metrics.Schemas()})
}

// GetMetricSchema 按服务类别返回指标 schema；未定义的类别只填写自由文本
func (a *API) GetMetricSchema(c *gin.Context) {
	category := strings.ToLower(strings.TrimSpace(c.Param("category")))
	schema, ok := metrics.SchemaFor(category)
	if !ok {
		respondErrorCode(c, http.StatusNotFound, "no_schema", "该服务类别没有结构化指标")
		return
	}
	c.JSON(http.StatusOK, gin.H{"schema": schema})
}

func hasSchema(category string) bool {
	_, ok := metrics.SchemaFor(category)
	return ok
}

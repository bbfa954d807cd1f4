package handler

import (
	"errors"
	"net/http"

	"github.com/agencyops/internal/db"
	"github.com/agencyops/internal/service"
	"github.com/gin-gonic/gin"
)

type clientRequest struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email"`
	Status       string `json:"status"`
}

type serviceRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

type assignmentRequest struct {
	EmployeeID uint `json:"employee_id"`
	ClientID   uint `json:"client_id"`
	ServiceID  uint `json:"service_id"`
}

// ListClients 获取客户列表
func (a *API) ListClients(c *gin.Context) {
	clients, err := a.clients.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取客户列表失败")
		return
	}
	items := make([]gin.H, 0, len(clients))
	for _, client := range clients {
		items = append(items, clientResponse(client))
	}
	c.JSON(http.StatusOK, gin.H{"clients": items})
}

// CreateClient 创建客户
func (a *API) CreateClient(c *gin.Context) {
	var req clientRequest
	if !bindJSON(c, &req, "请求格式不正确") {
		return
	}

	client, err := a.clients.Create(c.Request.Context(), service.ClientInput{
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		Status:       req.Status,
	})
	if err != nil {
		a.handleCatalogError(c, err, "创建客户失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "客户创建成功", "client": clientResponse(*client)})
}

// ListServices 获取服务列表，可按类别过滤
func (a *API) ListServices(c *gin.Context) {
	services, err := a.services.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取服务列表失败")
		return
	}

	items := make([]gin.H, 0, len(services))
	for _, svc := range services {
		items = append(items, serviceResponse(svc))
	}
	c.JSON(http.StatusOK, gin.H{"services": items})
}

// CreateService 创建服务
func (a *API) CreateService(c *gin.Context) {
	var req serviceRequest
	if !bindJSON(c, &req, "请求格式不正确") {
		return
	}

	svc, err := a.services.Create(c.Request.Context(), service.ServiceInput{Name: req.Name, Category: req.Category})
	if err != nil {
		a.handleCatalogError(c, err, "创建服务失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "服务创建成功", "service": serviceResponse(*svc)})
}

// MyAssignments 返回当前员工可填报的客户服务
func (a *API) MyAssignments(c *gin.Context) {
	assignments, err := a.assignments.ListForEmployee(c.Request.Context(), currentIdentity(c).UserID)
	if err != nil {
		a.handleCatalogError(c, err, "获取分配列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignments": assignmentResponses(assignments)})
}

// ListAssignments 后台分配列表
func (a *API) ListAssignments(c *gin.Context) {
	assignments, err := a.assignments.List(c.Request.Context(), service.AssignmentFilter{
		EmployeeID: parseUintQuery(c, "employee_id"),
		ClientID:   parseUintQuery(c, "client_id"),
		ServiceID:  parseUintQuery(c, "service_id"),
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取分配列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignments": assignmentResponses(assignments)})
}

// CreateAssignment 为员工分配客户服务
func (a *API) CreateAssignment(c *gin.Context) {
	var req assignmentRequest
	if !bindJSON(c, &req, "请求格式不正确") {
		return
	}

	assignment, err := a.assignments.Create(c.Request.Context(), service.AssignmentInput{
		EmployeeID: req.EmployeeID,
		ClientID:   req.ClientID,
		ServiceID:  req.ServiceID,
		CreatedBy:  currentIdentity(c).UserID,
	})
	if err != nil {
		a.handleCatalogError(c, err, "创建分配失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "分配创建成功", "assignment": gin.H{
		"id":          assignment.ID,
		"employee_id": assignment.EmployeeID,
		"client_id":   assignment.ClientID,
		"service_id":  assignment.ServiceID,
	}})
}

// DeleteAssignment 删除分配
func (a *API) DeleteAssignment(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的分配ID")
		return
	}

	if err := a.assignments.Delete(c.Request.Context(), id); err != nil {
		a.handleCatalogError(c, err, "删除分配失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "分配已删除"})
}

func (a *API) handleCatalogError(c *gin.Context, err error, fallback string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		respondValidation(c, verr)
	case errors.Is(err, service.ErrClientExists):
		respondError(c, http.StatusConflict, "客户名称已存在")
	case errors.Is(err, service.ErrServiceExists):
		respondError(c, http.StatusConflict, "服务名称已存在")
	case errors.Is(err, service.ErrAssignmentExists):
		respondError(c, http.StatusConflict, "该员工已分配到此客户服务")
	case errors.Is(err, service.ErrClientNotFound):
		respondError(c, http.StatusNotFound, "客户不存在")
	case errors.Is(err, service.ErrServiceNotFound):
		respondError(c, http.StatusNotFound, "服务不存在")
	case errors.Is(err, service.ErrEmployeeNotFound):
		respondError(c, http.StatusNotFound, "员工不存在")
	case errors.Is(err, service.ErrAssignmentNotFound):
		respondError(c, http.StatusNotFound, "分配不存在")
	default:
		a.log.WithError(err).Error(fallback)
		respondError(c, http.StatusInternalServerError, fallback)
	}
}

func clientResponse(client db.Client) gin.H {
	return gin.H{
		"id":            client.ID,
		"name":          client.Name,
		"contact_email": client.ContactEmail,
		"status":        client.Status,
	}
}

func serviceResponse(svc db.Service) gin.H {
	return gin.H{
		"id":         svc.ID,
		"name":       svc.Name,
		"category":   svc.Category,
		"has_schema": hasSchema(svc.Category),
	}
}

func assignmentResponses(assignments []service.AssignmentView) []gin.H {
	items := make([]gin.H, 0, len(assignments))
	for _, view := range assignments {
		items = append(items, gin.H{
			"id":           view.ID,
			"employee_id":  view.EmployeeID,
			"employee":     view.Employee,
			"client_id":    view.ClientID,
			"client_name":  view.ClientName,
			"service_id":   view.ServiceID,
			"service_name": view.ServiceName,
			"category":     view.Category,
			"has_schema":   view.HasSchema(),
		})
	}
	return items
}

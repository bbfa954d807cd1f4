package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/agencyops/internal/handler"
	"github.com/agencyops/internal/logger"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const sessionCookieName = "agencyops_session"

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, sessionSecret string, log logrus.FieldLogger) *gin.Engine {
	if log == nil {
		log = logger.Discard()
	}

	r := gin.New()
	r.Use(requestLogger(log), gin.Recovery())

	// 配置会话中间件
	secret := strings.TrimSpace(sessionSecret)
	if secret == "" {
		secret = "agencyops-dev-secret"
		log.Warn("SESSION_SECRET is empty, using an insecure development secret")
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionCookieName, store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	public := r.Group("/api")
	{
		public.POST("/login", api.Login)
		public.POST("/logout", api.Logout)
	}

	// 需要登录的接口
	authed := r.Group("/api")
	authed.Use(handler.AuthRequired())
	{
		authed.GET("/me", api.Me)

		authed.GET("/assignments", api.MyAssignments)
		authed.GET("/editor", api.GetEditor)

		authed.POST("/reports/draft", api.SaveDraft)
		authed.POST("/reports/submit", api.SubmitReport)
		authed.GET("/reports/mine", api.MyReports)
		authed.GET("/reports/:id", api.GetReport)

		authed.POST("/sessions", api.OpenSession)
		authed.GET("/sessions/:id", api.GetSession)
		authed.PUT("/sessions/:id", api.UpdateSession)
		authed.DELETE("/sessions/:id", api.CloseSession)

		authed.GET("/notifications", api.ListNotifications)
		authed.POST("/notifications/:id/read", api.MarkNotificationRead)

		authed.GET("/metrics/schemas", api.ListMetricSchemas)
		authed.GET("/metrics/schemas/:category", api.GetMetricSchema)

		// 管理后台
		admin := authed.Group("/admin")
		admin.Use(handler.AdminRequired())
		{
			admin.GET("/clients", api.ListClients)
			admin.POST("/clients", api.CreateClient)

			admin.GET("/services", api.ListServices)
			admin.POST("/services", api.CreateService)

			admin.GET("/assignments", api.ListAssignments)
			admin.POST("/assignments", api.CreateAssignment)
			admin.DELETE("/assignments/:id", api.DeleteAssignment)

			admin.GET("/reports", api.ListReports)
			admin.GET("/reports/stale", api.ListStaleDrafts)
		}
	}

	return r
}

// requestLogger 以结构化字段记录每个请求
func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Info("request rejected")
		default:
			entry.Debug("request handled")
		}
	}
}

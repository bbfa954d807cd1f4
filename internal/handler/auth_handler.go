package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/agencyops/internal/db"
	"github.com/agencyops/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const identityContextKey = "__identity"

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 校验用户名密码并写入会话
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req, "用户名和密码不能为空") {
		return
	}

	// 查找用户
	var user db.User
	if err := a.db.WithContext(c.Request.Context()).Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			a.log.WithError(err).Error("login lookup failed")
		}
		respondError(c, http.StatusUnauthorized, "用户名或密码错误")
		return
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		respondError(c, http.StatusUnauthorized, "用户名或密码错误")
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Set("username", user.Username)
	session.Set("role", user.Role)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userResponse(user)})
}

// Logout 清除会话
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已退出登录"})
}

// Me 返回当前登录用户
func (a *API) Me(c *gin.Context) {
	who := currentIdentity(c)

	var user db.User
	if err := a.db.WithContext(c.Request.Context()).First(&user, who.UserID).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "登录已失效")
		return
	}

	unread, err := a.notifications.UnreadCount(c.Request.Context(), who.UserID)
	if err != nil {
		a.log.WithError(err).Warn("count unread notifications")
	}

	c.JSON(http.StatusOK, gin.H{"user": userResponse(user), "unread_notifications": unread})
}

// AuthRequired 从会话解析当前身份，未登录时返回 401。
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := session.Get("user_id").(uint)
		if !ok || userID == 0 {
			respondError(c, http.StatusUnauthorized, "请先登录")
			c.Abort()
			return
		}

		role, _ := session.Get("role").(string)
		c.Set(identityContextKey, service.Identity{UserID: userID, Role: role})
		c.Next()
	}
}

// AdminRequired 必须在 AuthRequired 之后使用
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentIdentity(c).IsAdmin() {
			respondError(c, http.StatusForbidden, "需要管理员权限")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentIdentity(c *gin.Context) service.Identity {
	if value, exists := c.Get(identityContextKey); exists {
		if who, ok := value.(service.Identity); ok {
			return who
		}
	}
	return service.Identity{}
}

func userResponse(user db.User) gin.H {
	return gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"display_name": user.DisplayName,
		"role":         user.Role,
	}
}

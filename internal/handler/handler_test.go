package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agencyops/internal/db"
	"github.com/agencyops/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type handlerFixture struct {
	db       *gorm.DB
	api      *API
	admin    db.User
	employee db.User
	client   db.Client
	service  db.Service
}

func setupHandlerTest(t *testing.T, category string) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handler-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(dsn, logger.Silent)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	f := &handlerFixture{
		db:       gdb,
		admin:    db.User{Username: "admin", Password: string(hashed), Role: db.RoleAdmin},
		employee: db.User{Username: "alice", Password: string(hashed), Role: db.RoleEmployee},
		client:   db.Client{Name: "Acme", Status: "active"},
		service:  db.Service{Name: "Outreach", Category: category},
	}
	for _, v := range []interface{}{&f.admin, &f.employee, &f.client, &f.service} {
		if err := gdb.Create(v).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if err := gdb.Create(&db.Assignment{EmployeeID: f.employee.ID, ClientID: f.client.ID, ServiceID: f.service.ID}).Error; err != nil {
		t.Fatalf("seed assignment: %v", err)
	}

	f.api = NewAPI(gdb, Options{AutoSaveInterval: time.Hour})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = f.api.Close(ctx)
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return f
}

// engineAs 构造一个以固定身份访问的引擎，绕过会话
func (f *handlerFixture) engineAs(who service.Identity, register func(r gin.IRoutes)) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(identityContextKey, who)
		c.Next()
	})
	register(r)
	return r
}

func (f *handlerFixture) employeeIdentity() service.Identity {
	return service.Identity{UserID: f.employee.ID, Role: db.RoleEmployee}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	var payload map[string]interface{}
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode response %q: %v", rr.Body.String(), err)
		}
	}
	return rr, payload
}

func newSessionEngine(f *handlerFixture) *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))
	r.POST("/login", f.api.Login)
	r.POST("/logout", f.api.Logout)

	authed := r.Group("/")
	authed.Use(AuthRequired())
	authed.GET("/me", f.api.Me)
	authed.GET("/admin/clients", AdminRequired(), f.api.ListClients)
	return r
}

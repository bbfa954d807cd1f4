package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agencyops/internal/config"
	"github.com/agencyops/internal/db"
	"github.com/agencyops/internal/handler"
	"github.com/agencyops/internal/logger"
	"github.com/agencyops/internal/router"
	"github.com/gin-gonic/gin"
)

func main() {
	if err := config.LoadEnvFile(); err != nil {
		log.Fatalf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	logr, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		log.Fatalf("failed to configure logger: %v", err)
	}

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		logr.WithError(err).Fatal("failed to initialize database")
	}

	if err := db.EnsureUser(db.DB, cfg.SuperRootUserName, cfg.SuperRootPassword, db.RoleAdmin); err != nil {
		logr.WithError(err).Fatal("failed to ensure super root user")
	}

	api := handler.NewAPI(db.DB, handler.Options{
		AutoSaveInterval: cfg.AutoSaveInterval,
		Logger:           logr,
	})

	// 设置并运行 Gin 服务器
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.SetupRouter(api, cfg.SessionSecret, logr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.WithField("addr", cfg.ListenAddr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.WithError(err).Fatal("failed to run server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logr.WithError(err).Error("http shutdown")
	}
	// 等待进行中的自动保存结束
	if err := api.Close(ctx); err != nil {
		logr.WithError(err).Error("autosave shutdown")
	}
}

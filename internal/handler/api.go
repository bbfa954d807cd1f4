package handler

import (
	"context"
	"time"

	"github.com/agencyops/internal/logger"
	"github.com/agencyops/internal/service"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db            *gorm.DB
	log           logrus.FieldLogger
	clients       *service.ClientService
	services      *service.ServiceCatalog
	assignments   *service.AssignmentService
	notifications *service.NotificationService
	reports       *service.ReportService
	autosave      *service.AutoSaver
}

// Options 控制 API 的可选依赖
type Options struct {
	AutoSaveInterval time.Duration
	Logger           logrus.FieldLogger
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, opts Options) *API {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	drafts := service.NewDraftStore(gdb)
	assignments := service.NewAssignmentService(gdb)
	notifications := service.NewNotificationService(gdb)
	autosave := service.NewAutoSaver(drafts, opts.AutoSaveInterval, log.WithField("component", "autosave"))

	reports := service.NewReportService(gdb, drafts, assignments, notifications, log.WithField("component", "reports")).
		WithAutoSaver(autosave)

	return &API{
		db:            gdb,
		log:           log,
		clients:       service.NewClientService(gdb),
		services:      service.NewServiceCatalog(gdb),
		assignments:   assignments,
		notifications: notifications,
		reports:       reports,
		autosave:      autosave,
	}
}

// Close 停止自动保存调度器
func (a *API) Close(ctx context.Context) error {
	return a.autosave.Shutdown(ctx)
}

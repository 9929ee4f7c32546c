package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/config"
	appHTTP "github.com/cmlabs-hris/crew-attendance/internal/handler/http"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/alert"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/cron"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/database"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/jwt"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/sse"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/storage"
	"github.com/cmlabs-hris/crew-attendance/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/crew-attendance/internal/service/attendance"
	serviceAuth "github.com/cmlabs-hris/crew-attendance/internal/service/auth"
	expenseService "github.com/cmlabs-hris/crew-attendance/internal/service/expense"
	"github.com/cmlabs-hris/crew-attendance/internal/service/file"
	notificationService "github.com/cmlabs-hris/crew-attendance/internal/service/notification"
	overtimeService "github.com/cmlabs-hris/crew-attendance/internal/service/overtime"
	reportService "github.com/cmlabs-hris/crew-attendance/internal/service/report"
	timesheetService "github.com/cmlabs-hris/crew-attendance/internal/service/timesheet"
	warehouseService "github.com/cmlabs-hris/crew-attendance/internal/service/warehouse"
)

const version = "v1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading config: ", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid config: ", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.App.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := localtime.SetZone(cfg.App.Timezone); err != nil {
		log.Fatal("Invalid APP_TIMEZONE: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
	if err != nil {
		log.Fatal("Error connecting to database: ", err)
	}
	defer db.Close()

	var fileStorage storage.FileStorage
	switch cfg.Storage.Type {
	case "local":
		fileStorage, err = storage.NewLocalStorage(cfg.Storage.BasePath, cfg.Storage.BaseURL)
		if err != nil {
			log.Fatal("Failed to initialize local storage: ", err)
		}
	case "s3":
		fileStorage, err = storage.NewS3Storage(ctx, cfg.Storage.Bucket, cfg.Storage.Region, cfg.Storage.Prefix)
		if err != nil {
			log.Fatal("Failed to initialize S3 storage: ", err)
		}
	default:
		log.Fatal("Unsupported storage type: ", cfg.Storage.Type)
	}

	tx := postgresql.NewTransactor(db)
	crewRepo := postgresql.NewCrewRepository(db)
	JWTRepository := postgresql.NewJWTRepository(db)
	warehouseRepo := postgresql.NewWarehouseRepository(db)
	shiftRepo := postgresql.NewShiftRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	eventRepo := postgresql.NewEventRepository(db)
	timesheetRepo := postgresql.NewTimesheetRepository(db)
	overtimeRepo := postgresql.NewOvertimeRepository(db)
	expenseRepo := postgresql.NewExpenseRepository(db)
	notificationRepo := postgresql.NewNotificationRepository(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration, cfg.JWT.RefreshExpiration)
	hub := sse.NewHub()

	notifSvc := notificationService.NewNotificationService(
		notificationRepo,
		crewRepo,
		alert.New(cfg.Slack.BotToken, cfg.Slack.SupervisorChannel),
		hub,
		notificationService.Config{
			BatchSize:     cfg.Notification.BatchSize,
			FlushInterval: cfg.Notification.FlushInterval,
			WorkerCount:   cfg.Notification.Workers,
			QueueSize:     cfg.Notification.QueueSize,
		},
	)
	defer notifSvc.Stop()

	fileService := file.NewFileService(fileStorage)
	authSvc := serviceAuth.NewAuthService(tx, crewRepo, JWTService, JWTRepository)
	warehouseSvc := warehouseService.NewWarehouseService(warehouseRepo, shiftRepo)
	attendanceSvc := attendanceService.NewAttendanceService(tx, attendanceRepo, warehouseRepo, shiftRepo, crewRepo, notifSvc)
	timesheetSvc := timesheetService.NewTimesheetService(tx, eventRepo, timesheetRepo, notifSvc)
	overtimeSvc := overtimeService.NewOvertimeService(tx, overtimeRepo, attendanceRepo, crewRepo, notifSvc)
	expenseSvc := expenseService.NewExpenseService(expenseRepo, fileService, notifSvc)
	reportSvc := reportService.NewReportService(attendanceRepo, overtimeRepo)

	scheduler := cron.NewScheduler(ctx)
	cron.NewAttendanceJobs(attendanceSvc, cfg.Cron.AutoCheckoutGrace).RegisterJobs(scheduler, cfg.Cron.AutoCheckoutInterval)
	scheduler.Start()
	defer scheduler.Stop()

	routerCfg := appHTTP.RouterConfig{
		Env:            cfg.App.Env,
		Version:        version,
		LogLevel:       level,
		AllowedOrigins: cfg.App.FrontendOrigin,
	}
	if cfg.Storage.Type == "local" {
		routerCfg.UploadsPath = cfg.Storage.BasePath
		routerCfg.UploadsURL = cfg.Storage.BaseURL
	}

	router := appHTTP.NewRouter(routerCfg, JWTService, appHTTP.Handlers{
		Auth:         appHTTP.NewAuthHandler(authSvc),
		Warehouse:    appHTTP.NewWarehouseHandler(warehouseSvc),
		Attendance:   appHTTP.NewAttendanceHandler(attendanceSvc, reportSvc),
		Timesheet:    appHTTP.NewTimesheetHandler(timesheetSvc),
		Overtime:     appHTTP.NewOvertimeHandler(overtimeSvc),
		Expense:      appHTTP.NewExpenseHandler(expenseSvc),
		Notification: appHTTP.NewNotificationHandler(notifSvc, JWTService),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// open SSE streams would otherwise hold Shutdown until its deadline
	server.RegisterOnShutdown(hub.Close)

	go func() {
		slog.Info("Server running", "addr", server.Addr, "env", cfg.App.Env, "version", version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}

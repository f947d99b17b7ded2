package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lab-ops-api/api/swagger"
	"github.com/noah-isme/lab-ops-api/internal/authz"
	"github.com/noah-isme/lab-ops-api/internal/realtime"
	"github.com/noah-isme/lab-ops-api/internal/repository"
	"github.com/noah-isme/lab-ops-api/internal/service"
	"github.com/noah-isme/lab-ops-api/pkg/cache"
	"github.com/noah-isme/lab-ops-api/pkg/config"
	"github.com/noah-isme/lab-ops-api/pkg/database"
	"github.com/noah-isme/lab-ops-api/pkg/jobs"
	"github.com/noah-isme/lab-ops-api/pkg/logger"
	"github.com/noah-isme/lab-ops-api/pkg/observability"
)

// @title Lab Ops API
// @version 1.0.0
// @description Workflow and notification core for research lab operations.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	flushSentry, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, cfg.Release)
	if err != nil {
		logr.Sugar().Warnw("sentry disabled", "error", err)
	}
	defer flushSentry()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db.DB); err != nil {
			logr.Sugar().Fatalw("failed to migrate database", "error", err)
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, continuing without cache and relay", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	app := buildApp(ctx, cfg, logr, db, redisClient)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("http shutdown incomplete", "error", err)
	}
	if err := app.hub.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("websocket shutdown incomplete", "error", err)
	}
	app.notifications.Stop()
	app.runner.Wait()
	logr.Info("server stopped")
}

type application struct {
	router        *gin.Engine
	hub           *realtime.Hub
	notifications *service.NotificationService
	runner        *jobs.Runner
}

func buildApp(ctx context.Context, cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client) *application {
	validate := validator.New()
	metrics := service.NewMetricsService()
	gate := authz.NewGate()
	runner := jobs.NewRunner(logr.Named("jobs"))

	userRepo := repository.NewUserRepository(db)
	bulletinRepo := repository.NewBulletinRepository(db)
	grantRepo := repository.NewGrantRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	researchLogRepo := repository.NewResearchLogRepository(db)
	meetingRepo := repository.NewMeetingRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	labSettingsRepo := repository.NewLabSettingsRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.LabSettings.CacheTTL, logr, cfg.LabSettings.CacheEnabled && redisClient != nil)

	hub := realtime.NewHub(realtime.ConnConfig{
		ReadTimeout:     cfg.WebSocket.ReadTimeout(),
		WriteTimeout:    cfg.WebSocket.WriteTimeout,
		SendBuffer:      cfg.WebSocket.SendBuffer,
		MaxMessageBytes: cfg.WebSocket.MaxMessageBytes,
	}, logr.Named("realtime"), metrics)

	var publisher service.Publisher = hub
	if cfg.Notifications.RedisRelay && redisClient != nil {
		relay := realtime.NewRedisRelay(redisClient, cfg.Notifications.RedisChannel, hub, logr.Named("relay"))
		publisher = relay
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				observability.CaptureErr(err)
				logr.Error("notification relay stopped", zap.Error(err))
			}
		}()
	}

	notifications := service.NewNotificationService(publisher, service.NotificationConfig{
		Workers:   cfg.Notifications.Workers,
		QueueSize: cfg.Notifications.QueueSize,
	}, metrics, logr.Named("notifications"))
	notifications.Start(ctx)

	tokenSvc := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	labSettingsSvc := service.NewLabSettingsService(labSettingsRepo, cacheSvc, cfg.Tasks.DefaultDueDays, logr)
	meetingSvc := service.NewMeetingService(meetingRepo, gate, notifications, validate, logr, cfg.Reminders.LeadTime)

	if cfg.Reminders.Enabled {
		runner.Every(ctx, cfg.Reminders.ScanInterval, "meeting_reminders", meetingSvc.SendDueReminders)
	}

	svc := services{
		bulletins:    service.NewBulletinService(bulletinRepo, gate, notifications, userRepo, validate, logr),
		grants:       service.NewGrantService(grantRepo, gate, notifications, userRepo, validate, logr),
		tasks:        service.NewTaskService(taskRepo, gate, notifications, labSettingsSvc, validate, logr),
		researchLogs: service.NewResearchLogService(researchLogRepo, gate, notifications, userRepo, validate, logr),
		users:        service.NewUserService(userRepo, gate, notifications, validate, logr),
		meetings:     meetingSvc,
		reminders:    service.NewReminderService(reminderRepo, gate, validate, logr),
		notes:        service.NewNoteService(noteRepo, gate, validate, logr),
		tokens:       tokenSvc,
		metrics:      metrics,
		audit:        userRepo,
		gate:         gate,
		hub:          hub,
	}

	return &application{
		router:        newRouter(cfg, logr, db, svc),
		hub:           hub,
		notifications: notifications,
		runner:        runner,
	}
}

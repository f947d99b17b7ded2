package main

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-ops-api/internal/authz"
	"github.com/noah-isme/lab-ops-api/internal/handler"
	"github.com/noah-isme/lab-ops-api/internal/middleware"
	"github.com/noah-isme/lab-ops-api/internal/models"
	"github.com/noah-isme/lab-ops-api/internal/realtime"
	"github.com/noah-isme/lab-ops-api/internal/repository"
	"github.com/noah-isme/lab-ops-api/internal/service"
	"github.com/noah-isme/lab-ops-api/pkg/config"
	"github.com/noah-isme/lab-ops-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lab-ops-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lab-ops-api/pkg/middleware/requestid"
)

type services struct {
	bulletins    *service.BulletinService
	grants       *service.GrantService
	tasks        *service.TaskService
	researchLogs *service.ResearchLogService
	users        *service.UserService
	meetings     *service.MeetingService
	reminders    *service.ReminderService
	notes        *service.NoteService
	tokens       *service.TokenService
	metrics      *service.MetricsService
	audit        *repository.UserRepository
	gate         *authz.Gate
	hub          *realtime.Hub
}

func newRouter(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, svc services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(svc.metrics))

	metricsHandler := handler.NewMetricsHandler(svc.metrics, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Sockets authenticate themselves and outlive the store timeout.
	wsHandler := handler.NewWebSocketHandler(svc.hub, svc.tokens, cfg.CORS.AllowedOrigins, logr.Named("ws"))
	r.GET(strings.TrimRight(cfg.WebSocket.Path, "/")+"/:user_id", wsHandler.Connect)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(svc.tokens))
	api.Use(middleware.Timeout(cfg.StoreTimeout))

	api.GET("/metrics/snapshot", middleware.RequireAction(svc.gate, authz.ActionRosterView), metricsHandler.Snapshot)

	bulletins := handler.NewBulletinHandler(svc.bulletins)
	api.POST("/bulletins", middleware.RequireAction(svc.gate, authz.ActionBulletinCreate), bulletins.Create)
	api.GET("/bulletins", bulletins.List)
	api.GET("/bulletins/highlights", bulletins.Highlights)
	api.POST("/bulletins/:id/approve", middleware.RequireAction(svc.gate, authz.ActionBulletinModerate), bulletins.Moderate)

	grants := handler.NewGrantHandler(svc.grants)
	api.POST("/grants", middleware.RequireAction(svc.gate, authz.ActionGrantCreate), grants.Create)
	api.GET("/grants", grants.List)
	api.GET("/grants/:id", grants.Get)
	api.PUT("/grants/:id", middleware.RequireAction(svc.gate, authz.ActionGrantEdit), grants.Update)
	api.POST("/grants/:id/status", middleware.RequireAction(svc.gate, authz.ActionGrantSetStatus), grants.SetStatus)
	api.POST("/grants/:id/register", middleware.RequireAction(svc.gate, authz.ActionGrantRegister), grants.Register)
	api.GET("/grants/:id/registrations", grants.Registrations)
	api.POST("/grants/:id/expenditures", middleware.RequireAction(svc.gate, authz.ActionGrantRecordExpenditure), grants.RecordExpenditure)
	api.GET("/grants/:id/expenditures", grants.Expenditures)

	dashboard := handler.NewDashboardHandler(svc.grants)
	api.GET("/dashboard/grants", dashboard.Grants)

	users := handler.NewUserHandler(svc.users)
	api.GET("/users/students", middleware.RequireAction(svc.gate, authz.ActionRosterView), users.Students)
	api.POST("/users/:id/promote", middleware.RequireAction(svc.gate, authz.ActionUserChangeRole), users.Promote)
	api.POST("/users/:id/demote", middleware.RequireAction(svc.gate, authz.ActionUserChangeRole), users.Demote)

	tasks := handler.NewTaskHandler(svc.tasks)
	api.POST("/tasks", middleware.RequireAction(svc.gate, authz.ActionTaskCreate), tasks.Create)
	api.GET("/tasks", tasks.List)
	api.GET("/tasks/:id", tasks.Get)
	api.PUT("/tasks/:id", tasks.Update)

	researchLogs := handler.NewResearchLogHandler(svc.researchLogs)
	api.POST("/research-logs", middleware.RequireAction(svc.gate, authz.ActionResearchLogCreate), researchLogs.Create)
	api.GET("/research-logs", researchLogs.List)
	api.PUT("/research-logs/:id", middleware.RequireAction(svc.gate, authz.ActionResearchLogEndorse), researchLogs.Endorse)

	meetings := handler.NewMeetingHandler(svc.meetings)
	api.POST("/meetings",
		middleware.RequireAction(svc.gate, authz.ActionMeetingCreate),
		middleware.Audit(svc.audit, models.AuditActionMeetingCreate, "meeting"),
		meetings.Create,
	)
	api.GET("/meetings", meetings.List)

	reminders := handler.NewReminderHandler(svc.reminders)
	api.POST("/reminders", reminders.Create)
	api.GET("/reminders", reminders.List)
	api.PUT("/reminders/:id/complete", reminders.Complete)

	notes := handler.NewNoteHandler(svc.notes)
	api.POST("/notes",
		middleware.RequireAction(svc.gate, authz.ActionNoteCreate),
		middleware.Audit(svc.audit, models.AuditActionNoteCreate, "note"),
		notes.Create,
	)
	api.GET("/notes", notes.List)

	return r
}

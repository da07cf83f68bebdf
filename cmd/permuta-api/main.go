package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ifsertao/permuta-api/api/swagger"
	"github.com/ifsertao/permuta-api/internal/handler"
	"github.com/ifsertao/permuta-api/internal/middleware"
	"github.com/ifsertao/permuta-api/internal/repository"
	"github.com/ifsertao/permuta-api/internal/service"
	"github.com/ifsertao/permuta-api/pkg/cache"
	"github.com/ifsertao/permuta-api/pkg/config"
	"github.com/ifsertao/permuta-api/pkg/database"
	"github.com/ifsertao/permuta-api/pkg/jobs"
	"github.com/ifsertao/permuta-api/pkg/logger"
	"github.com/ifsertao/permuta-api/pkg/mailer"
	corsmiddleware "github.com/ifsertao/permuta-api/pkg/middleware/cors"
	reqidmiddleware "github.com/ifsertao/permuta-api/pkg/middleware/requestid"
)

// @title Permuta API
// @version 1.0.0
// @description Class swap management for the institution: swap requests, make-up sessions, notifications and coordination reports.
// @BasePath /api/v1
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	professorRepo := repository.NewProfessorRepository(db)
	classRepo := repository.NewClassRepository(db)
	disciplineRepo := repository.NewDisciplineRepository(db)
	slotRepo := repository.NewScheduleSlotRepository(db)
	swapRepo := repository.NewSwapRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	// Cache is optional; a failed Redis connection only disables it.
	var cacheSvc *service.CacheService
	if cfg.Stats.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, stats cache disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient), metrics, cfg.Stats.CacheTTL, logr, true)
		}
	}

	// Outbound mail.
	var mail mailer.Mailer
	if cfg.Mail.Enabled && cfg.Mail.SendGridKey != "" {
		mail = mailer.NewSendGrid(cfg.Mail.SendGridKey, cfg.Mail.FromName, cfg.Mail.FromEmail, cfg.Mail.SubjectTag)
	} else {
		mail = mailer.NewConsole(logr)
	}
	mailQueue := jobs.NewQueue("notification-email", service.MailJobHandler(mail, metrics, logr), jobs.QueueConfig{
		Workers:    cfg.Mail.Workers,
		BufferSize: cfg.Mail.QueueSize,
		MaxRetries: cfg.Mail.MaxRetries,
		RetryDelay: cfg.Mail.RetryDelay,
		Logger:     logr,
	})
	mailQueue.Start(ctx)
	defer mailQueue.Stop()

	// Services.
	validate := service.NewValidator()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     "permuta-api",
	})
	professorSvc := service.NewProfessorService(professorRepo, userRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, validate, logr)
	disciplineSvc := service.NewDisciplineService(disciplineRepo, professorRepo, validate, logr)
	scheduleSvc := service.NewScheduleService(slotRepo, professorRepo, classRepo, disciplineRepo, validate, logr)

	notifier := service.NewNotifierService(notificationRepo, userRepo, professorRepo, mailQueue, metrics, logr, service.NotifierConfig{
		FrontendBaseURL: cfg.Reports.FrontendBaseURL,
		MailEnabled:     cfg.Mail.Enabled,
	})
	swapSvc := service.NewSwapService(swapRepo, slotRepo, professorRepo, notifier, metrics, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, logr, cfg.Reports.FrontendBaseURL)
	statsSvc := service.NewStatsService(statsRepo, swapRepo, cacheSvc, logr, service.StatsConfig{
		WindowDays: cfg.Stats.WindowDays,
		TopLimit:   cfg.Stats.TopLimit,
		CacheTTL:   cfg.Stats.CacheTTL,
	})
	exportSvc := service.NewExportService(swapSvc, cfg.Reports.InstitutionName, logr)
	calendarSvc := service.NewCalendarService(slotRepo, swapRepo, professorRepo, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	professorHandler := handler.NewProfessorHandler(professorSvc)
	classHandler := handler.NewClassHandler(classSvc)
	disciplineHandler := handler.NewDisciplineHandler(disciplineSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	swapHandler := handler.NewSwapHandler(swapSvc, statsSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	statsHandler := handler.NewStatsHandler(statsSvc)
	reportHandler := handler.NewReportHandler(exportSvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("", middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)

	authed.GET("/professors", professorHandler.List)
	authed.GET("/professors/:id", professorHandler.Get)
	authed.GET("/classes", classHandler.List)
	authed.GET("/classes/:id", classHandler.Get)
	authed.GET("/disciplines", disciplineHandler.List)
	authed.GET("/disciplines/:id", disciplineHandler.Get)
	authed.GET("/schedule-slots", scheduleHandler.List)
	authed.GET("/schedule-slots/mine", scheduleHandler.ListMine)
	authed.GET("/schedule-slots/:id", scheduleHandler.Get)

	coordinator := authed.Group("", middleware.RequireCoordinator())
	coordinator.POST("/professors", professorHandler.Create)
	coordinator.PUT("/professors/:id", professorHandler.Update)
	coordinator.DELETE("/professors/:id", professorHandler.Delete)
	coordinator.POST("/classes", classHandler.Create)
	coordinator.PUT("/classes/:id", classHandler.Update)
	coordinator.DELETE("/classes/:id", classHandler.Delete)
	coordinator.POST("/disciplines", disciplineHandler.Create)
	coordinator.PUT("/disciplines/:id", disciplineHandler.Update)
	coordinator.DELETE("/disciplines/:id", disciplineHandler.Delete)
	coordinator.POST("/schedule-slots", scheduleHandler.Create)
	coordinator.PUT("/schedule-slots/:id", scheduleHandler.Update)
	coordinator.DELETE("/schedule-slots/:id", scheduleHandler.Delete)
	coordinator.GET("/stats", statsHandler.Dashboard)
	coordinator.GET("/reports/swaps", reportHandler.Export)

	authed.POST("/swaps", swapHandler.Create)
	authed.GET("/swaps", swapHandler.List)
	authed.GET("/swaps/:id", swapHandler.Get)
	authed.POST("/swaps/:id/make-up", swapHandler.RegisterMakeUp)
	authed.POST("/swaps/:id/confirm", swapHandler.Confirm)
	authed.POST("/swaps/:id/cancel", swapHandler.Cancel)
	authed.GET("/swaps/:id/receipt", reportHandler.Receipt)

	authed.GET("/notifications", notificationHandler.List)
	authed.GET("/notifications/unread-count", notificationHandler.UnreadCount)
	authed.POST("/notifications/:id/read", notificationHandler.MarkRead)

	authed.GET("/calendar/events", calendarHandler.Events)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

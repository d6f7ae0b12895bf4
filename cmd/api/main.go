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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sasm-ims-api/api/swagger"
	"github.com/noah-isme/sasm-ims-api/internal/handler"
	"github.com/noah-isme/sasm-ims-api/internal/middleware"
	"github.com/noah-isme/sasm-ims-api/internal/repository"
	"github.com/noah-isme/sasm-ims-api/internal/routes"
	"github.com/noah-isme/sasm-ims-api/internal/service"
	"github.com/noah-isme/sasm-ims-api/pkg/cache"
	"github.com/noah-isme/sasm-ims-api/pkg/config"
	"github.com/noah-isme/sasm-ims-api/pkg/database"
	"github.com/noah-isme/sasm-ims-api/pkg/events"
	"github.com/noah-isme/sasm-ims-api/pkg/export"
	"github.com/noah-isme/sasm-ims-api/pkg/jobs"
	"github.com/noah-isme/sasm-ims-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sasm-ims-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sasm-ims-api/pkg/middleware/requestid"
	"github.com/noah-isme/sasm-ims-api/pkg/storage"
)

// @title SASM-IMS API
// @version 1.0.0
// @description Scholar and student-assistant management: applications, deployment, DTR, leaves, evaluations and exports.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type eventSink interface {
	Publish(ctx context.Context, topic string, msg events.Message) error
	Close() error
}

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	} else {
		defer redisClient.Close() //nolint:errcheck
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metricsSvc, logr, service.CacheConfig{
			Namespace:  cfg.Redis.KeyPrefix,
			DefaultTTL: cfg.Dashboard.CacheTTL,
			Enabled:    true,
		})
	}

	var publisher eventSink = events.NopPublisher{}
	if cfg.Events.Enabled {
		async := events.NewAsyncPublisher(events.NewProducer(cfg.Events, logr), cfg.Events, logr)
		async.Start(context.Background())
		publisher = async
		logr.Info("event publishing enabled", zap.Strings("brokers", cfg.Events.Brokers), zap.Duration("timeout", cfg.Events.PublishTimeout))
	}
	defer publisher.Close() //nolint:errcheck

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	userDataRepo := repository.NewUserDataRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	scholarRepo := repository.NewScholarRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	dtrRepo := repository.NewDTRRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	scholarRequestRepo := repository.NewScholarRequestRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "sasm-ims-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, cacheSvc, cfg.Notifications.CacheTTL, validate, logr)
	applicationSvc := service.NewApplicationService(service.ApplicationServiceDeps{
		DB:        db,
		Apps:      applicationRepo,
		Scholars:  scholarRepo,
		Schedules: scheduleRepo,
		History:   userDataRepo,
		Users:     userRepo,
		Audit:     userRepo,
		Notifier:  notificationSvc,
		Events:    publisher,
		Cache:     cacheSvc,
		Metrics:   metricsSvc,
	}, validate, logr, service.ApplicationServiceConfig{
		EventTopic:          cfg.Events.ApplicationTopic,
		ServicePeriodMonths: cfg.Service.PeriodMonths,
	})
	scholarSvc := service.NewScholarService(scholarRepo, userRepo, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, scholarRepo, validate, logr)
	dtrSvc := service.NewDTRService(dtrRepo, scholarRepo, userRepo, notificationSvc, validate, logr, cfg.DTR.Location())
	leaveSvc := service.NewLeaveService(leaveRepo, scholarRepo, userRepo, userRepo, notificationSvc, validate, logr)
	evaluationSvc := service.NewEvaluationService(db, evaluationRepo, scholarRepo, notificationSvc, validate, logr)
	scholarRequestSvc := service.NewScholarRequestService(scholarRequestRepo, userRepo, userRepo, notificationSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Applications:  applicationRepo,
		Scholars:      scholarRepo,
		Leaves:        leaveRepo,
		DTR:           dtrRepo,
		Requests:      scholarRequestRepo,
		History:       userDataRepo,
		Notifications: notificationSvc,
		Cache:         cacheSvc,
		Metrics:       metricsSvc,
		Logger:        logr,
		Config: service.DashboardServiceConfig{
			CacheEnabled: cfg.Dashboard.CacheEnabled,
			CacheTTL:     cfg.Dashboard.CacheTTL,
		},
	})

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		exportHandler *handler.ExportHandler
		exportQueue   *jobs.Queue
	)
	if cfg.Exports.Enabled {
		files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Fatal("failed to prepare export storage", zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc := service.NewExportService(service.ExportSources{
			DTR:     dtrRepo,
			Roster:  scholarRepo,
			History: userDataRepo,
		}, files, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr, export.NewCSVExporter(), export.NewPDFExporter())

		worker := service.NewExportWorker(exportJobRepo, exportSvc, metricsSvc, cfg.Exports.WorkerRetries, logr)
		exportQueue = jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			RetryDelay: 2 * time.Second,
			Logger:     logr,
		})
		exportQueue.Start(rootCtx)

		exportJobSvc := service.NewExportJobService(exportJobRepo, exportQueue, exportSvc, metricsSvc, validate, logr, service.ExportJobConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: time.Hour,
			MaxRetries:      cfg.Exports.WorkerRetries,
		})
		exportJobSvc.RecoverPendingJobs(rootCtx)
		exportJobSvc.StartCleanup(rootCtx)
		exportHandler = handler.NewExportHandler(exportJobSvc)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc))

	checks := []handler.DependencyCheck{{Name: "postgres", Check: db.PingContext}}
	if redisClient != nil {
		checks = append(checks, handler.DependencyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks...)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	routes.Setup(r.Group(cfg.APIPrefix), routes.Handlers{
		Auth:            handler.NewAuthHandler(authSvc),
		Users:           handler.NewUserHandler(userSvc),
		Notifications:   handler.NewNotificationHandler(notificationSvc),
		Applications:    handler.NewApplicationHandler(applicationSvc),
		Scholars:        handler.NewScholarHandler(scholarSvc),
		Schedules:       handler.NewScheduleHandler(scheduleSvc),
		DTR:             handler.NewDTRHandler(dtrSvc),
		Leaves:          handler.NewLeaveHandler(leaveSvc),
		Evaluations:     handler.NewEvaluationHandler(evaluationSvc),
		ScholarRequests: handler.NewScholarRequestHandler(scholarRequestSvc),
		Dashboard:       handler.NewDashboardHandler(dashboardSvc),
		Exports:         exportHandler,
		Metrics:         metricsHandler,
	}, routes.Options{
		Auth:  middleware.JWT(authSvc),
		Audit: userRepo,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "prefix", cfg.APIPrefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}
	if exportQueue != nil {
		exportQueue.Stop()
	}
	logr.Info("server exited")
}

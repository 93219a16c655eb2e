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
	"go.uber.org/zap"

	_ "github.com/noah-isme/lms-api/api/swagger"
	"github.com/noah-isme/lms-api/internal/bootstrap"
	"github.com/noah-isme/lms-api/internal/handler"
	"github.com/noah-isme/lms-api/internal/repository"
	"github.com/noah-isme/lms-api/internal/server"
	"github.com/noah-isme/lms-api/internal/service"
	"github.com/noah-isme/lms-api/pkg/cache"
	"github.com/noah-isme/lms-api/pkg/config"
	"github.com/noah-isme/lms-api/pkg/database"
	"github.com/noah-isme/lms-api/pkg/export"
	"github.com/noah-isme/lms-api/pkg/logger"
)

// @title LMS API
// @version 1.0.0
// @description Course catalog, enrollment and lesson progress tracking.
// @BasePath /api/v1
// @schemes http
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logr.Fatal("failed to migrate schema", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, token revocation and login throttling disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	hasher := service.NewBcryptHasher()
	if cfg.Seed.Enabled {
		if _, err := bootstrap.Seed(ctx, db, hasher, logr); err != nil {
			logr.Fatal("failed to seed demo data", zap.Error(err))
		}
	}

	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	sessionRepo := repository.NewSessionRepository(redisClient, logr)

	metrics := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, sessionRepo, hasher, nil, logr, metrics, service.AuthConfig{
		AccessTokenSecret:   cfg.JWT.Secret,
		AccessTokenExpiry:   cfg.JWT.Expiration,
		Issuer:              cfg.JWT.Issuer,
		LoginThrottleWindow: cfg.Auth.LoginThrottleWindow,
	})
	userSvc := service.NewUserService(userRepo, hasher, nil, logr)
	categorySvc := service.NewCategoryService(categoryRepo, nil, logr)
	courseSvc := service.NewCourseService(courseRepo, categoryRepo, userRepo, nil, logr)
	lessonSvc := service.NewLessonService(lessonRepo, courseRepo, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, userRepo, nil, logr, metrics)
	progressSvc := service.NewProgressService(progressRepo, lessonRepo, enrollmentRepo, courseRepo, logr, metrics)
	statsSvc := service.NewStatsService(statsRepo, courseRepo, userRepo, logr)
	reportSvc := service.NewReportService(userRepo, enrollmentRepo, statsRepo,
		export.NewCSVExporter(cfg.Reports.CSVDelimiter), export.NewPDFExporter(), logr)

	handlers := server.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Users:       handler.NewUserHandler(userSvc),
		Categories:  handler.NewCategoryHandler(categorySvc),
		Courses:     handler.NewCourseHandler(courseSvc, lessonSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
		Students:    handler.NewStudentHandler(courseSvc, enrollmentSvc, progressSvc, statsSvc),
		Stats:       handler.NewStatsHandler(statsSvc),
		Reports:     handler.NewReportHandler(reportSvc, cfg.Reports.Enabled),
		Metrics: handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
			"postgres": db,
			"redis":    cache.NewProbe(redisClient),
		}),
	}

	router := server.New(handlers, server.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction && cfg.Docs.Enabled,
		Logger:         logr,
		Tokens:         authSvc,
		Audit:          userRepo,
		Metrics:        metrics,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

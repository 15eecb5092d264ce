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
	"github.com/robfig/cron/v3"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/noah-isme/malla-api/api/swagger"
	"github.com/noah-isme/malla-api/internal/catalog"
	"github.com/noah-isme/malla-api/internal/handler"
	"github.com/noah-isme/malla-api/internal/middleware"
	"github.com/noah-isme/malla-api/internal/repository"
	"github.com/noah-isme/malla-api/internal/service"
	"github.com/noah-isme/malla-api/pkg/cache"
	"github.com/noah-isme/malla-api/pkg/config"
	"github.com/noah-isme/malla-api/pkg/database"
	"github.com/noah-isme/malla-api/pkg/export"
	"github.com/noah-isme/malla-api/pkg/jobs"
	"github.com/noah-isme/malla-api/pkg/llm"
	"github.com/noah-isme/malla-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/malla-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/malla-api/pkg/middleware/requestid"
)

// @title Malla API
// @version 1.0.0
// @description Curriculum progress tracking and course recommendations for the LILEI program
// @BasePath /
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

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		logr.Fatal("curriculum catalog rejected", zap.String("path", cfg.Catalog.Path), zap.Error(err))
	}
	logr.Info("catalog loaded",
		zap.String("program", cat.Program),
		zap.Int("periods", len(cat.Periods)),
		zap.Int("courses", len(cat.Courses())),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	var checks []handler.ReadinessCheck

	cacheRepo := repository.NewCacheRepository(nil, "malla:", logr)
	redisReady := false
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(client, "malla:", logr)
			redisReady = true
			checks = append(checks, handler.ReadinessCheck{Name: "redis", Check: cacheRepo.Ping})
		}
	}
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Advisor.CacheTTL, logr, redisReady)

	var db *sqlx.DB
	var runs service.IngestionRunStore = repository.NewMemoryIngestionRunRepository(20)
	if cfg.Database.Enabled {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("ingestion audit database unavailable", zap.Error(err))
		}
		defer db.Close() //nolint:errcheck
		runs = repository.NewIngestionRunRepository(db)
		checks = append(checks, handler.ReadinessCheck{Name: "postgres", Check: db.PingContext})
	}

	var sessions *service.SessionService
	if cfg.Sessions.CacheEnabled && cacheSvc.Enabled() {
		sessions = service.NewSessionService(cacheSvc, metrics, logr, service.SessionConfig{TTL: cfg.Sessions.TTL})
	} else {
		sessions = service.NewSessionService(nil, metrics, logr, service.SessionConfig{TTL: cfg.Sessions.TTL})
	}
	tokens := service.NewTokenService(cfg.Sessions.TokenSecret, cfg.Sessions.TTL)

	progress := service.NewProgressService(cat, logr)
	recommendations := service.NewRecommendationService(cat, metrics, logr, service.RecommendationConfig{
		DefaultCap: cfg.Recommendations.DefaultCreditCap,
		MaxCap:     cfg.Recommendations.MaxCreditCap,
	})
	catalogSvc := service.NewCatalogService(cat)
	exporter := service.NewExportService(cat, progress, recommendations, export.NewCSVExporter(), logr)

	advisorCfg := service.AdvisorConfig{CacheTTL: cfg.Advisor.CacheTTL, Fallback: cfg.Advisor.Fallback}
	var parser service.TranscriptParser
	var advisor *service.AdvisorService
	if cfg.LLM.APIKey != "" {
		client := llm.NewClient(llm.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		})
		parser = service.NewLLMTranscriptParser(client, logr)
		advisor = service.NewAdvisorService(client, cacheSvc, metrics, logr, advisorCfg)
		logr.Info("language model configured", zap.String("model", client.Model()))
	} else {
		logr.Warn("LLM_API_KEY is empty, transcript analysis and course descriptions are disabled")
		parser = service.StaticTranscriptParser{Err: llm.ErrNotConfigured}
		advisor = service.NewAdvisorService(nil, cacheSvc, metrics, logr, advisorCfg)
	}

	ingestion := service.NewIngestionService(sessions, parser, runs, metrics, logr, service.IngestionConfig{
		MaxUploadBytes: cfg.Ingestion.MaxUploadBytes,
		MinTextChars:   cfg.Ingestion.MinTextChars,
	})
	queue := jobs.NewQueue("transcripts", ingestion.Handle, jobs.QueueConfig{
		Workers:    cfg.Ingestion.Workers,
		BufferSize: cfg.Ingestion.QueueSize,
		JobTimeout: cfg.Ingestion.Timeout,
		Logger:     logr,
	})
	queue.Start(ctx)
	ingestion.SetQueue(queue)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Sessions.SweepSchedule, func() {
		sessions.Sweep(ctx)
	}); err != nil {
		logr.Fatal("invalid session sweep schedule", zap.String("schedule", cfg.Sessions.SweepSchedule), zap.Error(err))
	}
	scheduler.Start()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	validate := validator.New()
	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Catalog:   handler.NewCatalogHandler(catalogSvc, advisor),
		Session:   handler.NewSessionHandler(sessions, tokens, progress, validate),
		Progress:  handler.NewProgressHandler(sessions, progress, recommendations, catalogSvc, exporter),
		Ingestion: handler.NewIngestionHandler(ingestion, sessions, cfg.Ingestion.MaxUploadBytes),
		Metrics:   handler.NewMetricsHandler(metrics, checks...),
	}, middleware.Session(tokens, sessions))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		<-scheduler.Stop().Done()
		queue.Stop()
		logr.Info("server stopped", zap.Int("sessions", sessions.Count()))
		return err
	})

	if err := g.Wait(); err != nil {
		logr.Error("server failed", zap.Error(err))
		os.Exit(1)
	}
}

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
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/newsroom-api/api/swagger"
	"github.com/noah-isme/newsroom-api/internal/repository"
	"github.com/noah-isme/newsroom-api/internal/service"
	"github.com/noah-isme/newsroom-api/pkg/cache"
	"github.com/noah-isme/newsroom-api/pkg/config"
	"github.com/noah-isme/newsroom-api/pkg/database"
	"github.com/noah-isme/newsroom-api/pkg/jobs"
	"github.com/noah-isme/newsroom-api/pkg/logger"
)

// @title Newsroom API
// @version 1.0.0
// @description Admin backend and public reader API for the news aggregation platform
// @BasePath /api
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logr.Sugar().Fatalw("schema migration failed", "error", err)
	}

	redisClient, err := cache.NewRedis(cfg.Redis, cfg.Cache.Enabled)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	validate := validator.New()
	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.PublicTTL, logr, cacheRepo.Enabled())

	users := repository.NewAdminUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	articles := repository.NewArticleRepository(db)
	sources := repository.NewSourceRepository(db)
	categories := repository.NewCategoryRepository(db)
	settingsRepo := repository.NewSettingRepository(db)

	authSvc := service.NewAuthService(users, sessions, service.NewSessionCache(cacheSvc, cfg.Cache.SessionTTL), metrics, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.Auth.TokenSecret,
		AccessTokenExpiry:  cfg.Auth.AccessTTL,
		RefreshTokenExpiry: cfg.Auth.RefreshTTL,
		Issuer:             cfg.Auth.Issuer,
	})
	settingSvc := service.NewSettingService(settingsRepo, cacheSvc, validate, logr)
	services := appServices{
		auth:       authSvc,
		articles:   service.NewArticleService(articles, cacheSvc, validate, logr),
		sources:    service.NewSourceService(sources, validate, logr),
		categories: service.NewCategoryService(categories, cacheSvc, validate, logr),
		settings:   settingSvc,
		public:     service.NewPublicService(articles, categories, settingSvc, cacheSvc, cfg.Cache.PublicTTL, logr),
		monitoring: service.NewMonitoringService(articles, sources, sessions, metrics, db, logr),
		exports:    service.NewExportService(articles, sources, logr),
		metrics:    metrics,
	}

	feedSvc := service.NewFeedService(sources, articles, service.NewRSSFetcher(cfg.Feeds.FetchTimeout), settingSvc, cacheSvc, metrics, logr, service.FeedOptions{
		MaxItemAge: cfg.Feeds.MaxItemAge,
	})
	feedQueue := jobs.NewQueue("feeds", feedSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Feeds.Workers,
		MaxRetries: 2,
		RetryDelay: 5 * time.Second,
		JobTimeout: cfg.Feeds.FetchTimeout + 30*time.Second,
		Logger:     logr,
	})
	feedSvc.UseQueue(feedQueue)
	feedQueue.Start(ctx)
	defer feedQueue.Stop()
	services.feeds = feedSvc

	sweeper := jobs.NewTicker("session-sweeper", cfg.Auth.SweepInterval, func(ctx context.Context) error {
		deleted, err := authSvc.CleanupExpired(ctx)
		if err != nil {
			return err
		}
		if deleted > 0 {
			logr.Info("expired sessions removed", zap.Int64("count", deleted))
		}
		return nil
	}, logr)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	if cfg.Feeds.SchedulerEnabled {
		scheduler := jobs.NewTicker("feed-scheduler", cfg.Feeds.RefreshInterval, func(ctx context.Context) error {
			queued, err := feedSvc.FetchAll(ctx)
			if err != nil {
				return err
			}
			logr.Debug("feed refresh queued", zap.Int("sources", queued))
			return nil
		}, logr)
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, logr, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
}

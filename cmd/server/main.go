package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmhub/internal/config"
	"github.com/mamadbah2/farmhub/internal/repository"
	"github.com/mamadbah2/farmhub/internal/repository/memory"
	"github.com/mamadbah2/farmhub/internal/repository/mongodb"
	"github.com/mamadbah2/farmhub/internal/repository/sheets"
	"github.com/mamadbah2/farmhub/internal/scheduler"
	"github.com/mamadbah2/farmhub/internal/server/router"
	authsvc "github.com/mamadbah2/farmhub/internal/service/auth"
	cattlesvc "github.com/mamadbah2/farmhub/internal/service/cattle"
	feedsvc "github.com/mamadbah2/farmhub/internal/service/feed"
	financesvc "github.com/mamadbah2/farmhub/internal/service/finance"
	healthsvc "github.com/mamadbah2/farmhub/internal/service/health"
	reportingsvc "github.com/mamadbah2/farmhub/internal/service/reporting"
	weathersvc "github.com/mamadbah2/farmhub/internal/service/weather"
	"github.com/mamadbah2/farmhub/pkg/clients/openweather"
	"github.com/mamadbah2/farmhub/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	store, err := openStore(cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close storage", zap.Error(err))
		}
	}()

	var sheet financesvc.SheetWriter
	if cfg.Sheets.Enabled() {
		spreadsheet, err := sheets.NewSpreadsheet(context.Background(), cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init finance spreadsheet", zap.Error(err))
		}
		sheet = spreadsheet
	} else {
		baseLogger.Warn("google sheets not configured, finance export disabled")
	}

	if cfg.Weather.APIKey == "" {
		baseLogger.Warn("openweather api key missing, weather endpoint will answer with a config error")
	}

	tokens := authsvc.NewTokenManager(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	financeSvc := financesvc.NewService(store.Finances(), sheet, logger.Named(baseLogger, "svc.finance"))
	services := router.Services{
		Auth:      authsvc.NewService(store.Users(), store.Farms(), tokens, cfg.Auth.BcryptCost, logger.Named(baseLogger, "svc.auth")),
		Cattle:    cattlesvc.NewService(store.Cattle(), logger.Named(baseLogger, "svc.cattle")),
		Feed:      feedsvc.NewService(store.Feed(), logger.Named(baseLogger, "svc.feed")),
		Health:    healthsvc.NewService(store.Health(), store.Cattle(), logger.Named(baseLogger, "svc.health")),
		Finance:   financeSvc,
		Reporting: reportingsvc.NewService(store.Cattle(), store.Feed(), financeSvc, logger.Named(baseLogger, "svc.reporting")),
		Weather:   weathersvc.NewService(openweather.NewClient(cfg.Weather), logger.Named(baseLogger, "svc.weather")),
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	engine := router.New(services, router.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		CookieSecure:   cfg.Auth.CookieSecure,
		Registry:       registry,
	}, logger.Named(baseLogger, "router"))

	sched, err := scheduler.NewScheduler(cfg.Scheduler, store.Feed(), registry, logger.Named(baseLogger, "scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStore(cfg *config.Config, baseLogger *zap.Logger) (repository.Store, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		baseLogger.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB, logger.Named(baseLogger, "repo.mongodb"))
	if err != nil {
		return nil, err
	}
	return mongoRepo, nil
}

package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmhub/internal/server/handlers"
	"github.com/mamadbah2/farmhub/internal/server/middleware"
	"github.com/mamadbah2/farmhub/internal/service/auth"
	"github.com/mamadbah2/farmhub/internal/service/cattle"
	"github.com/mamadbah2/farmhub/internal/service/feed"
	"github.com/mamadbah2/farmhub/internal/service/finance"
	"github.com/mamadbah2/farmhub/internal/service/health"
	"github.com/mamadbah2/farmhub/internal/service/reporting"
	"github.com/mamadbah2/farmhub/internal/service/weather"
)

// Services are the application services the routes dispatch to.
type Services struct {
	Auth      *auth.Service
	Cattle    *cattle.Service
	Feed      *feed.Service
	Health    *health.Service
	Finance   *finance.Service
	Reporting *reporting.Service
	Weather   *weather.Service
}

// Options tune the engine. A nil Registry gets a fresh one.
type Options struct {
	AllowedOrigins []string
	CookieSecure   bool
	Registry       *prometheus.Registry
}

// New wires the Gin engine with required routes and middlewares.
func New(svc Services, opts Options, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(registry))
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	authHandler := handlers.NewAuthHandler(svc.Auth, opts.CookieSecure, logger.Named("handlers.auth"))
	cattleHandler := handlers.NewCattleHandler(svc.Cattle, logger.Named("handlers.cattle"))
	feedHandler := handlers.NewFeedHandler(svc.Feed, logger.Named("handlers.feed"))
	healthHandler := handlers.NewHealthHandler(svc.Health, logger.Named("handlers.health"))
	financeHandler := handlers.NewFinanceHandler(svc.Finance, logger.Named("handlers.finance"))
	reportHandler := handlers.NewReportHandler(svc.Reporting, logger.Named("handlers.reports"))
	weatherHandler := handlers.NewWeatherHandler(svc.Weather, logger.Named("handlers.weather"))

	api := r.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.POST("/signup", authHandler.Signup)
	authRoutes.POST("/signin", authHandler.Signin)
	authRoutes.POST("/login", authHandler.Signin)
	authRoutes.POST("/google", authHandler.Google)
	authRoutes.POST("/signout", authHandler.Signout)

	api.GET("/weather", weatherHandler.Forecast)

	protected := api.Group("")
	protected.Use(middleware.Authenticate(svc.Auth, logger.Named("middleware.auth")))

	user := protected.Group("/user")
	user.GET("/profile", authHandler.Profile)
	user.PUT("/profile", authHandler.UpdateProfile)
	user.PUT("/change-password", authHandler.ChangePassword)

	herd := protected.Group("/cattle")
	herd.POST("", cattleHandler.Create)
	herd.GET("", cattleHandler.List)
	herd.GET("/:id", cattleHandler.Get)
	herd.PUT("/:id", cattleHandler.Update)
	herd.DELETE("/:id", cattleHandler.Delete)
	herd.POST("/:id/health-records", cattleHandler.AddHealthNote)

	feeds := protected.Group("/feed")
	feeds.POST("", feedHandler.Create)
	feeds.GET("", feedHandler.List)
	feeds.GET("/low-stock", feedHandler.LowStock)
	feeds.GET("/:id", feedHandler.Get)
	feeds.PUT("/:id", feedHandler.Update)
	feeds.DELETE("/:id", feedHandler.Delete)
	feeds.POST("/:id/adjust-stock", feedHandler.AdjustStock)

	records := protected.Group("/health")
	records.POST("", healthHandler.Create)
	records.GET("", healthHandler.List)
	records.GET("/cattle/:cattleId", healthHandler.ListByCattle)
	records.GET("/:id", healthHandler.Get)
	records.PUT("/:id", healthHandler.Update)
	records.DELETE("/:id", healthHandler.Delete)

	for _, prefix := range []string{"/finances", "/finance"} {
		ledger := protected.Group(prefix)
		ledger.POST("", financeHandler.Create)
		ledger.GET("", financeHandler.List)
		ledger.GET("/summary", financeHandler.Summary)
		ledger.POST("/export", financeHandler.Export)
		ledger.GET("/:id", financeHandler.Get)
		ledger.PUT("/:id", financeHandler.Update)
		ledger.DELETE("/:id", financeHandler.Delete)
	}

	protected.GET("/reports/overview", reportHandler.Overview)

	logger.Info("router initialized")

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

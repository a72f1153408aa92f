package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/fleetready/backend/internal/cache"
	"github.com/fleetready/backend/internal/config"
	"github.com/fleetready/backend/internal/http/handlers"
	"github.com/fleetready/backend/internal/http/middleware"
	"github.com/fleetready/backend/internal/readiness"
	"github.com/fleetready/backend/internal/rules"
	"github.com/fleetready/backend/internal/session"

	_ "github.com/fleetready/backend/docs"
)

func Router(cfg config.Config, svc *readiness.Service, sessions *session.Service, resultCache *cache.ResultCache, pinger handlers.Pinger, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Readiness:  svc,
		Sessions:   sessions,
		Cache:      resultCache,
		Classifier: rules.NewClassifier(),
		Validator:  validator.New(),
		Logger:     logger,
		Pinger:     pinger,
		MetricsTTL: cfg.MetricsCacheTTL,
		RecentTTL:  cfg.RecentCacheTTL,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")

	check := api.Group("/check")
	{
		check.POST("/session", h.CreateSession)
		check.PUT("/session/consent", h.SaveConsent)
		check.PUT("/session/vision", h.SaveVision)
		check.PUT("/session/cognitive", h.SaveCognitive)
		check.PUT("/session/behavioral", h.SaveBehavioral)
		check.PUT("/session/result", h.SaveResult)
		check.GET("/session/:id", h.GetSession)
		check.POST("/scan/complete", h.ScanComplete)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.GET("/dashboard/metrics", h.DashboardMetrics)
		admin.GET("/compliance/ledger", h.ComplianceLedger)
		admin.GET("/readiness/recent", h.RecentReadiness)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

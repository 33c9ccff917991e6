package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ForestRights-DSS/internal/interfaces/http/handlers"
	"github.com/turtacn/ForestRights-DSS/internal/interfaces/http/middleware"
	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

// RouterConfig aggregates the handlers and middleware settings of the API.
// Nil handlers leave their routes unregistered.
type RouterConfig struct {
	AnalysisHandler *handlers.AnalysisHandler
	ModelHandler    *handlers.ModelHandler
	HealthHandler   *handlers.HealthHandler

	Logger         logging.Logger
	Metrics        *prometheus.AppMetrics
	MetricsPath    string
	MetricsHandler http.Handler

	CORS        *middleware.CORSConfig
	Logging     middleware.LoggingConfig
	MaxBodySize int64
}

// NewRouter builds the gin engine. Middleware order: recovery, request id,
// CORS, logging, metrics, body limit.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID())
	if cfg.CORS != nil && len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(middleware.BodyLimit(cfg.MaxBodySize))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{Status: "error", Code: string(errors.ErrCodeNotFound), Message: "route not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, handlers.ErrorResponse{Status: "error", Code: string(errors.ErrCodeBadRequest), Message: "method not allowed"})
	})

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(r)
	}
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api/v1")
	if cfg.AnalysisHandler != nil {
		cfg.AnalysisHandler.RegisterRoutes(api)
	}
	if cfg.ModelHandler != nil {
		cfg.ModelHandler.RegisterRoutes(api)
	}
	return r
}

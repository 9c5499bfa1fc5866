package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/medhq/hms-core/internal/config"
	"github.com/medhq/hms-core/internal/middleware"
)

// Handler registers a group of routes under the API root.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine *gin.Engine
}

// New assembles the gin engine with the full middleware chain. The
// order matters: request id and logging first, then authentication,
// then the access pipeline, then the pharmacy scope, and the audit
// middleware last so it sees the final status.
func New(
	cfg *config.Config,
	logger zerolog.Logger,
	auth *middleware.AuthMiddleware,
	access *middleware.AccessMiddleware,
	pharmacyScope *middleware.PharmacyScopeMiddleware,
	audit *middleware.AuditMiddleware,
	handlers ...Handler,
) *Router {
	engine := gin.New()

	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger(logger))
	engine.Use(middleware.Recovery(logger))
	engine.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		engine.Use(limiter.Limit())
	}
	engine.Use(auth.Authenticate())
	engine.Use(audit.Audit())
	engine.Use(access.Enforce())
	engine.Use(pharmacyScope.Enforce())

	if cfg.Monitoring.PrometheusEnabled {
		path := cfg.Monitoring.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	api := engine.Group("/api/v1")
	for _, h := range handlers {
		h.RegisterRoutes(api)
	}

	return &Router{engine: engine}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

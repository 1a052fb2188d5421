package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/agentic-studio/internal/http/handlers"
	httpMW "github.com/yungbote/agentic-studio/internal/http/middleware"
	"github.com/yungbote/agentic-studio/internal/observability"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics

	JobHandler    *httpH.JobHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Job
		if cfg.JobHandler != nil {
			api.POST("/agent", cfg.JobHandler.RunAgent)
			api.POST("/jobs", cfg.JobHandler.StartJob)
			api.GET("/jobs", cfg.JobHandler.ListJobs)
			api.GET("/jobs/:id", cfg.JobHandler.GetJob)
			api.GET("/jobs/:id/stream", cfg.JobHandler.StreamJob)
			api.POST("/jobs/:id/cancel", cfg.JobHandler.CancelJob)
		}
	}

	return r
}

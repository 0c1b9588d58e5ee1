package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/babetranslator-backend/internal/http/handlers"
	httpMW "github.com/yungbote/babetranslator-backend/internal/http/middleware"
	"github.com/yungbote/babetranslator-backend/internal/observability"
	"github.com/yungbote/babetranslator-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	CORSOrigins []string
	// ServiceName enables otelgin spans when set.
	ServiceName string

	HealthHandler  *httpH.HealthHandler
	UserHandler    *httpH.UserHandler
	MessageHandler *httpH.MessageHandler
	ReplyHandler   *httpH.ReplyHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/", cfg.HealthHandler.Root)
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.HealthHandler != nil {
			api.GET("/personality-types", cfg.HealthHandler.PersonalityTypes)
		}

		// Users
		if cfg.UserHandler != nil {
			api.PUT("/users/:id", cfg.UserHandler.UpsertProfile)
			api.GET("/users/:id", cfg.UserHandler.GetUser)
			api.GET("/users/:id/quota", cfg.UserHandler.GetQuota)
			api.GET("/users/:id/conversation", cfg.UserHandler.GetConversation)
		}

		// Ingestion
		if cfg.MessageHandler != nil {
			api.POST("/users/:id/messages", cfg.MessageHandler.IngestText)
			api.POST("/users/:id/screenshots", cfg.MessageHandler.IngestScreenshot)
			api.POST("/extract-text", cfg.MessageHandler.ExtractText)
		}

		// Replies
		if cfg.ReplyHandler != nil {
			api.POST("/users/:id/replies", cfg.ReplyHandler.GenerateReply)
			api.POST("/analyze", cfg.ReplyHandler.Analyze)
		}
	}

	return r
}

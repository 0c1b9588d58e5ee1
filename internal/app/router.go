package app

import (
	apihttp "github.com/yungbote/babetranslator-backend/internal/http"
	httpH "github.com/yungbote/babetranslator-backend/internal/http/handlers"
	"github.com/yungbote/babetranslator-backend/internal/observability"
	"github.com/yungbote/babetranslator-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg *Config, svcs Services, metrics *observability.Metrics) *apihttp.Server {
	rc := apihttp.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		HealthHandler:  httpH.NewHealthHandler(Version),
		UserHandler:    httpH.NewUserHandler(log, svcs.Orchestrator),
		MessageHandler: httpH.NewMessageHandler(log, svcs.Orchestrator, cfg.HTTP.MaxImageBytes),
		ReplyHandler:   httpH.NewReplyHandler(log, svcs.Orchestrator),
	}
	if cfg.OTel.Enabled {
		rc.ServiceName = cfg.OTel.ServiceName
	}
	return apihttp.NewServer(apihttp.ServerConfig{
		Addr:              cfg.HTTP.Addr,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout.Duration,
		WriteTimeout:      cfg.HTTP.WriteTimeout.Duration,
	}, rc)
}

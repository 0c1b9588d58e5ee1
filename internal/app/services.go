package app

import (
	"github.com/yungbote/babetranslator-backend/internal/data/kv"
	convrepo "github.com/yungbote/babetranslator-backend/internal/data/repos/conversation"
	userrepo "github.com/yungbote/babetranslator-backend/internal/data/repos/user"
	"github.com/yungbote/babetranslator-backend/internal/observability"
	"github.com/yungbote/babetranslator-backend/internal/platform/logger"
	"github.com/yungbote/babetranslator-backend/internal/services"
)

type Services struct {
	Users         userrepo.Registry
	Conversations convrepo.Store
	Ingestion     services.IngestionService
	Quota         services.QuotaGate
	Orchestrator  services.Orchestrator
}

func wireServices(log *logger.Logger, cfg *Config, store kv.Store, caps services.Capabilities, metrics *observability.Metrics) Services {
	users := userrepo.NewRegistry(store, log)
	convs := convrepo.NewStore(store, log)
	ingestion := services.NewIngestionService(log, convs, caps.Extractor, caps.Timeout, metrics)
	quota := services.NewQuotaGate(log, users, cfg.QuotaPolicy(), nil)
	orch := services.NewOrchestrator(log, users, convs, ingestion, quota, caps, services.OrchestratorConfig{
		FallbackPersonality: cfg.FallbackPersonality(),
	}, metrics)
	return Services{
		Users:         users,
		Conversations: convs,
		Ingestion:     ingestion,
		Quota:         quota,
		Orchestrator:  orch,
	}
}

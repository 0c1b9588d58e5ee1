package app

import (
	"context"
	"fmt"

	"github.com/yungbote/babetranslator-backend/internal/data/kv"
	"github.com/yungbote/babetranslator-backend/internal/platform/logger"
)

func wireState(ctx context.Context, log *logger.Logger, cfg StateConfig) (kv.Store, error) {
	switch cfg.Backend {
	case StateMemory, "":
		log.Info("State backend: in-memory (state is lost on restart)")
		return kv.NewMemory(), nil
	case StateRedis:
		log.Info("State backend: redis", "addr", cfg.RedisAddr)
		return kv.NewRedis(ctx, log, kv.RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisPrefix,
		})
	case StatePostgres:
		log.Info("State backend: postgres")
		return kv.OpenPostgres(log, cfg.PostgresDSN)
	case StateSQLite:
		log.Info("State backend: sqlite", "path", cfg.SQLitePath)
		return kv.OpenSQLite(log, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}

func statePing(store kv.Store) func(context.Context) error {
	if p, ok := store.(kv.Pinger); ok {
		return p.Ping
	}
	return nil
}

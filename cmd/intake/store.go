package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/intake/internal/config"
	"github.com/aretw0/intake/pkg/adapters/file"
	"github.com/aretw0/intake/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/intake/pkg/adapters/redis"
	"github.com/aretw0/intake/pkg/persistence/middleware"
	"github.com/aretw0/intake/pkg/ports"
)

// storage is the session backend selected by configuration.
type storage struct {
	store  ports.SessionStore
	locker ports.DistributedLocker
	close  func() error
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	s := &storage{close: func() error { return nil }}

	switch cfg.Store {
	case config.StoreRedis:
		rs := redisAdapter.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redisAdapter.WithTTL(cfg.SessionTTL))
		if err := rs.Ping(ctx); err != nil {
			rs.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		s.store = rs
		s.locker = redisAdapter.NewLocker(rs.Client(), redisAdapter.DefaultPrefix)
		s.close = rs.Close
		logger.Info("using redis session store", "addr", cfg.RedisAddr, "db", cfg.RedisDB, "ttl", cfg.SessionTTL)
	case config.StoreFile:
		s.store = file.New(cfg.FileDir)
		logger.Info("using file session store", "dir", cfg.FileDir)
	default:
		s.store = memory.NewStore()
		logger.Info("using in-memory session store")
	}

	active, fallback, err := cfg.Keys()
	if err != nil {
		s.close()
		return nil, err
	}
	if active != nil {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		})
		if err != nil {
			s.close()
			return nil, err
		}
		s.store = middleware.Chain(s.store, enc)
		logger.Info("session encryption enabled", "fallback_keys", len(fallback))
	}
	return s, nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cwrk-planet/chat-service/config"
	"github.com/cwrk-planet/chat-service/internal/cache"
	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/pg"
	"github.com/cwrk-planet/chat-service/internal/store"
	"github.com/cwrk-planet/chat-service/internal/store/memory"
	"github.com/cwrk-planet/chat-service/internal/store/postgres"

	"github.com/prometheus/client_golang/prometheus"
)

// backend: выбранное хранилище и функция его закрытия.
type backend struct {
	convs store.ConversationStore
	users store.UserDirectory
	close func()
}

func openBackend(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*backend, error) {
	var b *backend
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		st := memory.New()
		for _, u := range cfg.Storage.SeedUsers {
			if err := st.UpsertUser(ctx, domain.User{ID: u.ID, Username: u.Username, Name: u.Name}); err != nil {
				return nil, fmt.Errorf("seed user %s: %w", u.ID, err)
			}
		}
		slog.Info("storage: memory", "seed_users", len(cfg.Storage.SeedUsers))
		b = &backend{convs: st, users: st, close: func() {}}

	default:
		pool, err := pg.NewPool(ctx, cfg.Postgres.ToPGConfig())
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		pg.RegisterStats(reg, pool)
		st := postgres.NewFromPool(pool)
		// живых соединений после рестарта нет
		n, err := st.ResetStatuses(ctx)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("reset statuses: %w", err)
		}
		slog.Info("storage: postgres", "statuses_reset", n)
		b = &backend{convs: st, users: st, close: pool.Close}
	}

	if !cfg.Redis.Enabled() {
		return b, nil
	}
	rdb, err := cache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		// кэш необязателен
		slog.Warn("redis unavailable, user cache disabled", "addr", cfg.Redis.Addr, "err", err)
		return b, nil
	}
	b.users = cache.NewUsers(b.users, rdb, cfg.Redis.UserTTL)
	closeStore := b.close
	b.close = func() {
		_ = rdb.Close()
		closeStore()
	}
	slog.Info("redis user cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.UserTTL)
	return b, nil
}

func runMigrate(ctx context.Context, cfg *config.Config) error {
	initLogger(cfg)
	if cfg.Storage.Driver != config.DriverPostgres {
		return fmt.Errorf("migrate: storage.driver is %q, nothing to do", cfg.Storage.Driver)
	}

	pool, err := pg.NewPool(ctx, cfg.Postgres.ToPGConfig())
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	return postgres.Migrate(ctx, pool)
}

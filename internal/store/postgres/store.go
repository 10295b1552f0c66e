package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/cwrk-planet/chat-service/internal/store"

	"github.com/jackc/pgx/v5"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	_ store.ConversationStore = (*Store)(nil)
	_ store.UserDirectory     = (*Store)(nil)
)

// Store: хранилище переписок и справочник пользователей поверх PostgreSQL.
type Store struct {
	q querier
}

// NewFromPool - конструктор от пула (*pgxpool.Pool)
func NewFromPool(q querier) *Store {
	return &Store{q: q}
}

// NewFromTx - конструктор от транзакции, удобно для составных операций
func NewFromTx(tx pgx.Tx) *Store {
	return &Store{q: tx}
}

// Migrate применяет встроенные миграции по порядку имён. Миграции идемпотентны.
func Migrate(ctx context.Context, q querier) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := q.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
		slog.Info("postgres: migration applied", slog.String("name", name))
	}
	return nil
}

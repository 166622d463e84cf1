package journal

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/fx"

	"emabot/internal/modules/config"
	"emabot/pkg/db"
	"emabot/pkg/logger"
)

// NewJournal wires the Postgres journal when a DSN is configured and a
// no-op one otherwise, so the rest of the app never branches on it.
func NewJournal(lc fx.Lifecycle, cfg *config.Config) (Journal, error) {
	if cfg.JournalDSN == "" {
		logger.Info("journal disabled, no DSN configured")
		return Nop{}, nil
	}

	pool, err := db.NewPool(context.Background(), db.PoolConfig{DSN: cfg.JournalDSN})
	if err != nil {
		return nil, errors.Wrap(err, "journal pool")
	}
	tx := db.NewPgTxManager(pool)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return errors.Wrap(pool.Ping(ctx), "journal ping")
		},
		OnStop: func(ctx context.Context) error {
			tx.Close()
			return nil
		},
	})
	return NewPG(tx), nil
}

func Module() fx.Option {
	return fx.Module("journal",
		fx.Provide(NewJournal),
	)
}

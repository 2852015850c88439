// Package app wires the stores and services shared by the API server and the
// terminal client.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/MrJamesThe3rd/colmado/internal/changefeed"
	"github.com/MrJamesThe3rd/colmado/internal/config"
	"github.com/MrJamesThe3rd/colmado/internal/database"
	"github.com/MrJamesThe3rd/colmado/internal/inventory"
	inventoryStore "github.com/MrJamesThe3rd/colmado/internal/inventory/store"
	"github.com/MrJamesThe3rd/colmado/internal/ledger"
	ledgerStore "github.com/MrJamesThe3rd/colmado/internal/ledger/store"
	"github.com/MrJamesThe3rd/colmado/internal/lock"
	"github.com/MrJamesThe3rd/colmado/internal/sale"
	saleStore "github.com/MrJamesThe3rd/colmado/internal/sale/store"
	"github.com/MrJamesThe3rd/colmado/internal/settlement"
	settlementStore "github.com/MrJamesThe3rd/colmado/internal/settlement/store"
	"github.com/MrJamesThe3rd/colmado/internal/tax"
	taxStore "github.com/MrJamesThe3rd/colmado/internal/tax/store"
)

type App struct {
	DB    *sql.DB
	Redis *redis.Client

	Sales       *sale.Service
	Ledger      *ledger.Service
	Tax         *tax.Service
	Settlements *settlement.Service
	Inventory   *inventory.Service
}

// New connects to Postgres, applies pending migrations and builds the
// services. Redis is optional; without it locks are process-local and change
// notifications are dropped.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.New(ctx, cfg.ConnectionString(), cfg.DB.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := database.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	a := &App{DB: db}

	var (
		notifier changefeed.Notifier = changefeed.Noop{}
		locker   lock.Locker         = lock.NewLocal()
	)

	if cfg.Redis.Addr != "" {
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		if err := a.Redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}

		notifier = changefeed.NewRedis(a.Redis, cfg.Redis.SyncChannel)
		locker = lock.NewRedis(a.Redis)

		slog.Info("redis enabled", "addr", cfg.Redis.Addr, "channel", cfg.Redis.SyncChannel)
	}

	acc := cfg.Accounts

	a.Sales = sale.NewService(saleStore.New(db))
	a.Ledger = ledger.NewService(ledgerStore.New(db))
	a.Tax = tax.NewService(taxStore.New(db))
	a.Settlements = settlement.NewService(settlementStore.New(db), a.Sales, a.Ledger, a.Tax, notifier, settlement.Config{
		CommissionRate: cfg.Settlement.CommissionRate,
		RetentionRate:  cfg.Settlement.RetentionRate,
		Accounts: settlement.Accounts{
			CardClearing:        acc.CardClearing,
			CommissionExpense:   acc.CommissionExpense,
			RetentionReceivable: acc.RetentionReceivable,
		},
	})
	a.Inventory = inventory.NewService(inventoryStore.New(db), a.Ledger, locker, notifier, inventory.Accounts{
		Inventory:           acc.Inventory,
		InventoryGain:       acc.InventoryGain,
		AccountsPayable:     acc.AccountsPayable,
		CostOfGoodsSold:     acc.CostOfGoodsSold,
		Shrinkage:           acc.Shrinkage,
		ShrinkageDamage:     acc.ShrinkageDamage,
		ShrinkageTheft:      acc.ShrinkageTheft,
		ShrinkageExpiration: acc.ShrinkageExpiration,
	})

	return a, nil
}

// RepostPending retries the journal and retention steps that failed after a
// primary write was committed.
func (a *App) RepostPending(ctx context.Context) {
	if res, err := a.Settlements.RepostPending(ctx); err != nil {
		slog.Error("failed to repost settlements", "error", err)
	} else if res.Repaired+res.Failed > 0 {
		slog.Info("reposted settlements", "repaired", res.Repaired, "failed", res.Failed)
	}

	if res, err := a.Inventory.RepostPending(ctx); err != nil {
		slog.Error("failed to repost stock movements", "error", err)
	} else if res.Repaired+res.Failed > 0 {
		slog.Info("reposted stock movements", "repaired", res.Repaired, "failed", res.Failed)
	}
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			slog.Error("failed to close redis", "error", err)
		}
	}

	if err := a.DB.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
}

package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/orders/internal/health"
	"github.com/vladislavdragonenkov/orders/internal/storage/gormstore"
	"github.com/vladislavdragonenkov/orders/internal/storage/memory"
	"github.com/vladislavdragonenkov/orders/internal/storage/postgres"
)

// storageDeps - выбранное хранилище заказов и его служебные хуки.
type storageDeps struct {
	repo           domain.OrderRepository
	storageChecker healthcheck.Checker
	closeFn        func() error
}

// initStorage открывает хранилище, выбранное в cfg.StorageDriver.
func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (*storageDeps, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		logger.Info("используем in-memory хранилище заказов")
		return &storageDeps{
			repo: memory.NewOrderRepository(),
			storageChecker: healthcheck.NewSimpleChecker("storage", func(context.Context) error {
				return nil
			}),
		}, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres dsn is required for storage driver %q", cfg.StorageDriver)
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
			logger.Info("postgres migrations applied")
		}
		logger.Info("используем postgres хранилище заказов")
		return &storageDeps{
			repo:           postgres.NewOrderRepository(store),
			storageChecker: healthcheck.NewStorageChecker("storage", store),
			closeFn:        store.Close,
		}, nil

	case StorageDriverSQLite, StorageDriverMySQL:
		var (
			store *gormstore.Store
			err   error
		)
		if cfg.StorageDriver == StorageDriverSQLite {
			store, err = gormstore.OpenSQLite(ctx, cfg.SQLitePath)
		} else {
			store, err = gormstore.OpenMySQL(ctx, cfg.MySQLDSN)
		}
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.StorageDriver, err)
		}
		if err := store.AutoMigrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("migrate %s schema: %w", cfg.StorageDriver, err)
		}
		logger.WithField("driver", cfg.StorageDriver).Info("используем gorm хранилище заказов")
		return &storageDeps{
			repo:           gormstore.NewOrderRepository(store),
			storageChecker: healthcheck.NewStorageChecker("storage", store),
			closeFn:        store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
}

// closeStorage закрывает подключение к хранилищу, если оно было открыто.
func closeStorage(deps *storageDeps, logger *log.Entry) {
	if deps == nil || deps.closeFn == nil {
		return
	}
	if err := deps.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
		return
	}
	logger.Info("storage closed")
}

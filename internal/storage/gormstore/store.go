// Package gormstore хранит заказы в SQLite или MySQL через GORM.
package gormstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultConnTimeout     = 5 * time.Second
	defaultMaxOpenConns    = 50
	defaultMaxIdleConns    = 10
	defaultConnMaxLifetime = time.Hour
)

// Store оборачивает подключение GORM.
type Store struct {
	db *gorm.DB
}

// OpenSQLite открывает базу SQLite по пути к файлу или DSN вида file:...?mode=memory.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	return open(ctx, sqlite.Open(path))
}

// OpenMySQL открывает подключение к MySQL. DSN должен содержать parseTime=true.
func OpenMySQL(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("mysql dsn is empty")
	}
	return open(ctx, mysql.Open(dsn))
}

func open(ctx context.Context, dialector gorm.Dialector) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxIdleConns(defaultMaxIdleConns)
	sqlDB.SetMaxOpenConns(defaultMaxOpenConns)
	sqlDB.SetConnMaxLifetime(defaultConnMaxLifetime)

	store := &Store{db: db}
	if err := store.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return store, nil
}

// DB возвращает подключение GORM.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// AutoMigrate создаёт или дополняет таблицы заказов, позиций и чеков.
func (s *Store) AutoMigrate(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store is not initialized")
	}
	if err := s.db.WithContext(ctx).AutoMigrate(&orderModel{}, &orderItemModel{}, &receiptModel{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Ping проверяет доступность базы.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store is not initialized")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return sqlDB.PingContext(pingCtx)
}

// Close закрывает подключение.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

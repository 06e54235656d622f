package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/app"
	"github.com/vladislavdragonenkov/orders/internal/version"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
// Неизвестный уровень заменяется на info, возвращается предупреждение.
func setupLogger(cfg app.LogConfig) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		log.SetLevel(log.InfoLevel)
		return err
	}
	log.SetLevel(level)
	return nil
}

// loadDotEnv подгружает .env, если он есть; переменные окружения процесса имеют приоритет.
func loadDotEnv(paths ...string) bool {
	if err := godotenv.Load(paths...); err != nil {
		return false
	}
	return true
}

func main() {
	dotEnvLoaded := loadDotEnv()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("некорректная конфигурация")
	}
	if err := setupLogger(cfg.Log); err != nil {
		log.WithError(err).WithField("level", cfg.Log.Level).Warn("unknown LOG_LEVEL, using info")
	}
	if !dotEnvLoaded {
		log.Debug("no .env file found, using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(version.Fields()).WithFields(log.Fields{
		"grpc_addr":    cfg.GRPCAddr,
		"metrics_addr": cfg.MetricsAddr,
		"http_addr":    cfg.HTTPAddr,
		"storage":      cfg.StorageDriver,
	}).Info("запускаем OrdersService")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("OrdersService остановлен")
}

// migrate applies the embedded schema migrations to DATABASE_URL.
//
// Usage: go run ./cmd/migrate
package main

import (
	"context"
	"log"
	"time"

	"alltech-erp/internal/config"
	"alltech-erp/internal/db"
	"alltech-erp/internal/logger"
	"alltech-erp/migrations"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()

	connCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := db.NewPool(connCtx, cfg)
	if err != nil {
		zl.Fatal("connect", zap.Error(err))
	}
	defer pool.Close()

	applied, err := db.Migrate(context.Background(), pool, migrations.FS, zl)
	if err != nil {
		zl.Fatal("migrate", zap.Int("applied", applied), zap.Error(err))
	}
	zl.Info("all migrations processed", zap.Int("applied", applied))
}

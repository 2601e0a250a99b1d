package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"alltech-erp/internal/adapters/cli"
	"alltech-erp/internal/adapters/repl"
	"alltech-erp/internal/app"
	"alltech-erp/internal/config"
	"alltech-erp/internal/core"
	"alltech-erp/internal/db"
	"alltech-erp/internal/logger"
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

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	svc := app.NewAppService(
		core.NewPurchaseOrderService(pool, zl),
		core.NewSalesInvoiceService(pool, zl),
		core.NewPurchaseInvoiceService(pool, zl),
		core.NewDashboardService(pool, zl, cfg.DashboardMaxLimit),
		zl,
	)

	if len(os.Args) > 1 {
		if err := cli.Run(ctx, svc, os.Args[1:], os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			if errors.Is(err, cli.ErrUsage) {
				os.Exit(2)
			}
			os.Exit(1)
		}
		return
	}

	repl.Run(ctx, svc, bufio.NewReader(os.Stdin), os.Stdout)
}

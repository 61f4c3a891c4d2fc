// cmd/historian/main.go drains the client action journal from Redis into
// PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/kalooki/internal/config"
	"github.com/jason-s-yu/kalooki/internal/database"
	"github.com/jason-s-yu/kalooki/internal/historian"
	"github.com/jason-s-yu/kalooki/internal/journal"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb, err := journal.Connect(ctx, addr, cfg.RedisDB)
	if err != nil {
		logger.Fatal(err)
	}
	src := journal.NewRedis(rdb, cfg.JournalQueue)
	defer src.Close()

	pool, err := database.Connect(ctx, cfg.PostgresURL())
	if err != nil {
		logger.Fatal(err)
	}
	defer pool.Close()

	store := database.NewActionStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal(err)
	}

	svc := historian.New(src, store,
		historian.WithBatchSize(cfg.HistorianBatchSize),
		historian.WithFlushDelay(cfg.HistorianFlush),
		historian.WithLogger(logger),
	)
	if err := svc.Run(ctx); err != nil {
		logger.Error(err)
	}
	logger.Info("Historian shutdown complete.")
}

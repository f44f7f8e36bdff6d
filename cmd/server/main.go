package main

import (
	"context"
	"net/http"
	"time"

	"github.com/auctionhq/auction-backend/internal/config"
	"github.com/auctionhq/auction-backend/internal/engine"
	"github.com/auctionhq/auction-backend/internal/httpapi"
	"github.com/auctionhq/auction-backend/internal/hub"
	"github.com/auctionhq/auction-backend/internal/store"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const maxDBRetries = 5

func main() {
	cfg := config.Load()

	log := newLogger(cfg.Dev)
	defer log.Sync()

	ledger := openLedger(cfg, log)

	ctx := context.Background()
	h := hub.NewHub(ctx, log)
	eng := engine.New(ledger, h, log)
	api := httpapi.New(eng, ledger, log)

	handler := httpapi.SetupRoutes(api, h, log)

	log.Info("listening", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(dev bool) *zap.Logger {
	if dev {
		log, _ := zap.NewDevelopment()
		return log
	}
	log, _ := zap.NewProduction()
	return log
}

func openLedger(cfg config.Config, log *zap.Logger) store.Ledger {
	if cfg.DatabaseDSN == "" {
		log.Warn("DATABASE_URL not set, using in-memory ledger")
		return store.NewMemoryLedger()
	}

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}

	var db *gorm.DB
	var err error
	for attempt := 1; ; attempt++ {
		db, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), gormConfig)
		if err == nil {
			break
		}
		if attempt >= maxDBRetries {
			log.Fatal("failed to open db", zap.Error(err))
		}
		log.Warn("db not ready, retrying", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(3 * time.Second)
	}

	ledger := store.NewGormLedger(db)
	if err := ledger.Migrate(); err != nil {
		log.Fatal("migrate failed", zap.Error(err))
	}
	return ledger
}

package main

import (
	"fmt"
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Dzasterpeace/xcloudbot/internal/betfair"
	"github.com/Dzasterpeace/xcloudbot/internal/settlement"
	"github.com/Dzasterpeace/xcloudbot/internal/settlement/repo"
	"github.com/Dzasterpeace/xcloudbot/internal/shared/cache"
	"github.com/Dzasterpeace/xcloudbot/internal/shared/config"
	"github.com/Dzasterpeace/xcloudbot/internal/shared/db"
	"github.com/Dzasterpeace/xcloudbot/internal/shared/logger"
	"github.com/Dzasterpeace/xcloudbot/internal/shared/metrics"
	"github.com/Dzasterpeace/xcloudbot/internal/shared/vault"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	if err := db.Migrate(pg); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	// Redis: lock das passadas cron
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}

	// Cofre das credenciais delegadas
	v, err := vault.NewFromBase64(cfg.EncryptionKey)
	if err != nil {
		log.Fatal("encryption key", zap.Error(err))
	}

	// deps
	repository := repo.NewPostgres(pg)
	venue := betfair.New(betfair.Config{
		ClientID:     cfg.BetfairClientID,
		ClientSecret: cfg.BetfairClientSecret,
		RedirectURI:  cfg.BetfairRedirectURI,
		AuthURL:      cfg.BetfairAuthURL,
		TokenURL:     cfg.BetfairTokenURL,
		CatalogueURL: cfg.BetfairCatalogueURL,
		OrdersURL:    cfg.BetfairOrdersURL,
	}, log, repository, v)

	settle := settlement.NewCycle(log, repository, venue, cfg.BetPrice)
	refresh := settlement.NewRefreshCycle(log, repository, venue)
	lock := settlement.NewPassLock(rdb, settlement.PassTTL)

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, pg.PingContext)

	// HTTP pro agendador externo
	api := settlement.NewServer(log, settle, refresh, lock)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	log.Info("settlement-worker listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}

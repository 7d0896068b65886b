package main

import (
	"fmt"
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Dzasterpeace/xcloudbot/internal/betfair"
	"github.com/Dzasterpeace/xcloudbot/internal/shared/config"
	"github.com/Dzasterpeace/xcloudbot/internal/shared/db"
	"github.com/Dzasterpeace/xcloudbot/internal/shared/kafka"
	"github.com/Dzasterpeace/xcloudbot/internal/shared/logger"
	"github.com/Dzasterpeace/xcloudbot/internal/shared/metrics"
	"github.com/Dzasterpeace/xcloudbot/internal/shared/vault"
	thttp "github.com/Dzasterpeace/xcloudbot/internal/tipster-service/http"
	kpub "github.com/Dzasterpeace/xcloudbot/internal/tipster-service/producer"
	"github.com/Dzasterpeace/xcloudbot/internal/tipster-service/repo"
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

	// Cofre das credenciais delegadas
	v, err := vault.NewFromBase64(cfg.EncryptionKey)
	if err != nil {
		log.Fatal("encryption key", zap.Error(err))
	}

	// Kafka writer (topico tip_published)
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicTipPublished)
	defer writer.Close()

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
	publ := kpub.NewKafkaPublisher(writer, cfg.TopicTipPublished)

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, pg.PingContext)

	// HTTP público
	api := thttp.NewServer(log, repository, venue, publ)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	log.Info("tipster-service listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}

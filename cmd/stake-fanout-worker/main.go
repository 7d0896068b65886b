package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Dzasterpeace/xcloudbot/internal/shared/config"
	"github.com/Dzasterpeace/xcloudbot/internal/shared/db"
	"github.com/Dzasterpeace/xcloudbot/internal/shared/kafka"
	"github.com/Dzasterpeace/xcloudbot/internal/shared/logger"
	"github.com/Dzasterpeace/xcloudbot/internal/shared/metrics"
	ev "github.com/Dzasterpeace/xcloudbot/pkg/contracts/events"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Conexão com banco de dados Postgres para criação das stakes pendentes
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Kafka consumer: consome eventos tip_published para o fan-out de stakes
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicTipPublished, "stake-fanout")
	defer reader.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicTipPublishedDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicTipPublishedDLQ)
		defer dlqWriter.Close()
	}

	// Servidor HTTP para métricas Prometheus e healthcheck
	metrics.StartMetricsServer(cfg.MetricsPort, pg.PingContext)

	log.Info("stake-fanout-worker started", zap.String("consume", cfg.TopicTipPublished))

	ctx := context.Background()

	// Loop principal: consome eventos do Kafka e cria stakes pendentes
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		var tip ev.TipPublished
		if jerr := json.Unmarshal(msg.Value, &tip); jerr != nil {
			log.Error("unmarshal tip_published", zap.Error(jerr))
			continue
		}

		if err := processOne(ctx, log, pg, &tip); err != nil {
			log.Error("fanout tip", zap.String("tipId", tip.TipID), zap.Error(err))
			if dlqWriter != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, tip.TipID, msg.Value)
			}
			// Backoff simples para evitar flood em caso de erro
			time.Sleep(500 * time.Millisecond)
		}
	}
}

// processOne cria uma stake pendente por seguidor do sistema, na stake
// configurada pelo seguidor. O ON CONFLICT segura reentrega do Kafka:
// reprocessar o mesmo evento não duplica stake.
func processOne(ctx context.Context, log *zap.Logger, pg *sql.DB, tip *ev.TipPublished) error {
	rows, err := pg.QueryContext(ctx, `
		SELECT user_id, stake FROM system_followers WHERE system_id = $1`, tip.SystemID)
	if err != nil {
		return err
	}
	defer rows.Close()

	type follower struct {
		userID string
		stake  float64
	}
	var followers []follower
	for rows.Next() {
		var f follower
		if err := rows.Scan(&f.userID, &f.stake); err != nil {
			return err
		}
		followers = append(followers, f)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	created := 0
	for _, f := range followers {
		res, err := pg.ExecContext(ctx, `
			INSERT INTO stakes (id, user_id, tip_id, stake, status)
			VALUES ($1,$2,$3,$4,'pending')
			ON CONFLICT (user_id, tip_id) DO NOTHING`,
			uuid.NewString(), f.userID, tip.TipID, f.stake)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			created++
		}
	}

	log.Info("tip fanned out",
		zap.String("tipId", tip.TipID),
		zap.String("systemId", tip.SystemID),
		zap.Int("followers", len(followers)),
		zap.Int("stakesCreated", created),
	)
	return nil
}

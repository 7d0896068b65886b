package settlement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stakesPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xcloudbot_stakes_placed_total",
		Help: "Stakes colocadas com sucesso no venue.",
	})
	stakesExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xcloudbot_stakes_expired_total",
		Help: "Stakes expiradas (corrida já tinha largado).",
	})
	stakesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xcloudbot_stakes_failed_total",
		Help: "Tentativas que falharam e voltaram pra pending.",
	})

	tokensRefreshed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xcloudbot_tokens_refreshed_total",
		Help: "Tokens renovados pelo ciclo proativo.",
	})
	tokensSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xcloudbot_tokens_skipped_total",
		Help: "Usuários pulados por não terem refresh token.",
	})
	tokensFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xcloudbot_tokens_failed_total",
		Help: "Renovações de token que falharam.",
	})
)

package settlement

import (
	"context"

	"go.uber.org/zap"

	"github.com/Dzasterpeace/xcloudbot/internal/settlement/repo"
)

// CredentialLister lista quem tem credencial gravada, com flag de refresh token.
type CredentialLister interface {
	ListCredentialUsers(ctx context.Context) ([]repo.CredentialUser, error)
}

// TokenRefresher renova o token de um usuário (implementado por betfair.Client).
type TokenRefresher interface {
	RefreshUser(ctx context.Context, userID string) error
}

// RefreshSummary agrega os desfechos de uma passada de refresh.
type RefreshSummary struct {
	Refreshed int `json:"refreshed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// RefreshCycle renova proativamente o token de todos os usuários conectados,
// sem esperar a margem de 60s do caminho preguiçoso.
type RefreshCycle struct {
	log   *zap.Logger
	store CredentialLister
	venue TokenRefresher
}

func NewRefreshCycle(log *zap.Logger, store CredentialLister, venue TokenRefresher) *RefreshCycle {
	return &RefreshCycle{log: log, store: store, venue: venue}
}

// Run percorre os usuários com credencial. Quem não tem refresh token é
// contado como skipped sem nenhuma chamada de rede; falha de um usuário
// não afeta os demais.
func (c *RefreshCycle) Run(ctx context.Context) RefreshSummary {
	var sum RefreshSummary

	users, err := c.store.ListCredentialUsers(ctx)
	if err != nil {
		c.log.Error("list credential users", zap.Error(err))
		return sum
	}

	for _, u := range users {
		if !u.HasRefreshToken {
			sum.Skipped++
			continue
		}
		if err := c.venue.RefreshUser(ctx, u.UserID); err != nil {
			c.log.Warn("token refresh failed", zap.String("userId", u.UserID), zap.Error(err))
			sum.Failed++
			continue
		}
		sum.Refreshed++
	}

	tokensRefreshed.Add(float64(sum.Refreshed))
	tokensSkipped.Add(float64(sum.Skipped))
	tokensFailed.Add(float64(sum.Failed))
	return sum
}

package settlement

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Dzasterpeace/xcloudbot/internal/betfair"
	"github.com/Dzasterpeace/xcloudbot/internal/settlement/repo"
)

// StakeStore é o que o ciclo precisa da persistência de stakes.
type StakeStore interface {
	ListPendingStakes(ctx context.Context) ([]repo.Stake, error)
	ReclaimStaleStakes(ctx context.Context, maxAge time.Duration) (int64, error)
	ClaimStake(ctx context.Context, id string) (bool, error)
	SettleStake(ctx context.Context, id, status string) error
	GetTip(ctx context.Context, id string) (*repo.Tip, error)
}

// Venue resolve mercados e envia ordens (implementado por betfair.Client).
type Venue interface {
	Resolve(ctx context.Context, userID, course string, raceTime time.Time, runner string) (*betfair.Selection, error)
	Place(ctx context.Context, userID string, sel betfair.Selection, side betfair.Side, stake, price float64, ref string) (*betfair.PlacementResult, error)
}

// Summary agrega os desfechos de uma passada de liquidação.
type Summary struct {
	Placed  int `json:"placed"`
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
}

// Cycle é a passada de liquidação disparada pelo agendador: percorre as stakes
// pendentes e tenta colocar cada uma exatamente uma vez.
type Cycle struct {
	log   *zap.Logger
	store StakeStore
	venue Venue
	price float64
	now   func() time.Time
}

func NewCycle(log *zap.Logger, store StakeStore, venue Venue, price float64) *Cycle {
	return &Cycle{log: log, store: store, venue: venue, price: price, now: time.Now}
}

// Run processa o conjunto pendente inteiro. A falha de uma stake nunca aborta
// as demais; tudo que não termina em placed/expired volta pra pending e é
// retentado na próxima invocação (o relógio da corrida limita o retry).
func (c *Cycle) Run(ctx context.Context) Summary {
	var sum Summary

	// claims órfãos de invocação que morreu voltam pra pending; depois de
	// PassTTL o lock expirou e ninguém vivo ainda segura esses claims
	if n, err := c.store.ReclaimStaleStakes(ctx, PassTTL); err != nil {
		c.log.Error("reclaim stale stakes", zap.Error(err))
	} else if n > 0 {
		c.log.Warn("reclaimed stale claims", zap.Int64("stakes", n))
	}

	stakes, err := c.store.ListPendingStakes(ctx)
	if err != nil {
		c.log.Error("list pending stakes", zap.Error(err))
		return sum
	}
	c.log.Info("settlement pass", zap.Int("pending", len(stakes)))

	for _, st := range stakes {
		c.processOne(ctx, st, &sum)
	}

	stakesPlaced.Add(float64(sum.Placed))
	stakesExpired.Add(float64(sum.Expired))
	stakesFailed.Add(float64(sum.Failed))
	return sum
}

// processOne decide o destino de uma stake e grava o status antes de seguir
// pra próxima, então um crash no meio da passada só deixa a stake em voo stale.
func (c *Cycle) processOne(ctx context.Context, st repo.Stake, sum *Summary) {
	claimed, err := c.store.ClaimStake(ctx, st.ID)
	if err != nil {
		c.log.Error("claim stake", zap.String("stakeId", st.ID), zap.Error(err))
		sum.Failed++
		return
	}
	if !claimed {
		// outra invocação do ciclo levou essa stake
		return
	}

	tip, err := c.store.GetTip(ctx, st.TipID)
	if errors.Is(err, repo.ErrNotFound) {
		// palpite sumiu: não há o que retentar, desfecho terminal
		c.log.Warn("tip gone, failing stake", zap.String("stakeId", st.ID), zap.String("tipId", st.TipID))
		if serr := c.store.SettleStake(ctx, st.ID, repo.StatusFailed); serr != nil {
			c.log.Error("fail stake", zap.String("stakeId", st.ID), zap.Error(serr))
		}
		sum.Failed++
		return
	}
	if err != nil {
		c.log.Error("load tip for stake", zap.String("stakeId", st.ID), zap.Error(err))
		c.release(ctx, st.ID)
		sum.Failed++
		return
	}

	// corrida já largou: expira sem tocar no venue
	if tip.RaceTime.Before(c.now()) {
		if err := c.store.SettleStake(ctx, st.ID, repo.StatusExpired); err != nil {
			c.log.Error("expire stake", zap.String("stakeId", st.ID), zap.Error(err))
			sum.Failed++
			return
		}
		sum.Expired++
		return
	}

	sel, err := c.venue.Resolve(ctx, st.UserID, tip.Course, tip.RaceTime, tip.Horse)
	if err != nil {
		c.log.Warn("market lookup failed",
			zap.String("stakeId", st.ID),
			zap.String("horse", tip.Horse),
			zap.String("course", tip.Course),
			zap.Error(err))
		c.release(ctx, st.ID)
		sum.Failed++
		return
	}

	side := betfair.Back
	if tip.SystemType == "lay" {
		side = betfair.Lay
	}

	if _, err := c.venue.Place(ctx, st.UserID, *sel, side, st.Stake, c.price, st.ID); err != nil {
		c.log.Warn("bet placement failed", zap.String("stakeId", st.ID), zap.Error(err))
		c.release(ctx, st.ID)
		sum.Failed++
		return
	}

	if err := c.store.SettleStake(ctx, st.ID, repo.StatusPlaced); err != nil {
		// ordem colocada mas status não gravado: o claim in_progress impede
		// resubmissão; fica pra inspeção manual
		c.log.Error("persist placed status", zap.String("stakeId", st.ID), zap.Error(err))
		sum.Failed++
		return
	}
	c.log.Info("bet placed", zap.String("stakeId", st.ID), zap.String("marketId", sel.MarketID))
	sum.Placed++
}

// release devolve uma stake reivindicada pra pending (retry no próximo ciclo)
func (c *Cycle) release(ctx context.Context, id string) {
	if err := c.store.SettleStake(ctx, id, repo.StatusPending); err != nil {
		c.log.Error("release stake", zap.String("stakeId", id), zap.Error(err))
	}
}

package settlement

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// PassTTL limita a vida de um lock de passada. Passado esse prazo nenhuma
// invocação viva ainda segura um claim in_progress, então o mesmo prazo serve
// de corte pra recuperar claims órfãos de uma invocação que morreu no meio.
const PassTTL = 10 * time.Minute

// PassLock serializa invocações do agendador: duas passadas do mesmo tipo
// nunca rodam ao mesmo tempo sobre o mesmo conjunto de stakes.
type PassLock struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPassLock(rdb *redis.Client, ttl time.Duration) *PassLock {
	return &PassLock{rdb: rdb, ttl: ttl}
}

// Acquire tenta pegar o lock da passada. Retorna ok=false quando outra
// invocação está rodando. Se o redis estiver fora, deixa rodar: o claim
// por stake no Postgres continua garantindo no máximo uma submissão.
func (l *PassLock) Acquire(ctx context.Context, name string) (release func(), ok bool) {
	if l == nil || l.rdb == nil {
		return func() {}, true
	}

	key := "cron_lock:" + name
	got, err := l.rdb.SetNX(ctx, key, "1", l.ttl).Result()
	if err != nil {
		return func() {}, true
	}
	if !got {
		return nil, false
	}
	return func() {
		_ = l.rdb.Del(context.Background(), key).Err()
	}, true
}

package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dzasterpeace/xcloudbot/internal/betfair"
)

// ErrNotFound marca linha inexistente, distinto de erro de acesso ao banco.
var ErrNotFound = errors.New("not found")

// Postgres implementa a persistência do pipeline de liquidação
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório do pipeline
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// ListPendingStakes retorna todas as stakes ainda pendentes
func (p *Postgres) ListPendingStakes(ctx context.Context) ([]Stake, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, tip_id, stake, status, created_at, updated_at
		FROM stakes WHERE status = $1
		ORDER BY created_at`, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending stakes: %w", err)
	}
	defer rows.Close()

	var out []Stake
	for rows.Next() {
		var s Stake
		if err := rows.Scan(&s.ID, &s.UserID, &s.TipID, &s.Stake, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stake: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ClaimStake tenta a transição condicional pending->in_progress.
// Retorna false quando outra invocação do ciclo já reivindicou a stake;
// é isso que garante no máximo uma submissão mesmo com ciclos concorrentes.
func (p *Postgres) ClaimStake(ctx context.Context, id string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE stakes SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`, StatusInProgress, id, StatusPending)
	if err != nil {
		return false, fmt.Errorf("claim stake %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReclaimStaleStakes devolve pra pending claims in_progress mais velhos que
// maxAge. Cobre a invocação que morreu entre o claim e o desfecho: sem isso a
// stake ficaria presa em in_progress pra sempre, já que ListPendingStakes só
// enxerga pending.
func (p *Postgres) ReclaimStaleStakes(ctx context.Context, maxAge time.Duration) (int64, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE stakes SET status = $1, updated_at = NOW()
		WHERE status = $2 AND updated_at < NOW() - $3 * INTERVAL '1 second'`,
		StatusPending, StatusInProgress, maxAge.Seconds())
	if err != nil {
		return 0, fmt.Errorf("reclaim stale stakes: %w", err)
	}
	return res.RowsAffected()
}

// SettleStake grava o desfecho de uma stake reivindicada: placed, expired
// ou de volta a pending quando a tentativa falhou
func (p *Postgres) SettleStake(ctx context.Context, id, status string) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE stakes SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`, status, id, StatusInProgress)
	if err != nil {
		return fmt.Errorf("settle stake %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("settle stake %s: not in progress", id)
	}
	return nil
}

// GetTip carrega um palpite junto com o tipo do sistema (back/lay)
func (p *Postgres) GetTip(ctx context.Context, id string) (*Tip, error) {
	var t Tip
	err := p.db.QueryRowContext(ctx, `
		SELECT t.id, t.system_id, t.race_time, t.course, t.horse, t.stake_type, s.system_type
		FROM tips t JOIN systems s ON s.id = t.system_id
		WHERE t.id = $1`, id).
		Scan(&t.ID, &t.SystemID, &t.RaceTime, &t.Course, &t.Horse, &t.StakeType, &t.SystemType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get tip %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get tip %s: %w", id, err)
	}
	return &t, nil
}

// ListCredentialUsers lista os usuários com registro de credencial, marcando
// quem tem refresh token (sem abrir o conteúdo selado)
func (p *Postgres) ListCredentialUsers(ctx context.Context) ([]CredentialUser, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT user_id, refresh_token IS NOT NULL AND length(refresh_token) > 0
		FROM user_credentials`)
	if err != nil {
		return nil, fmt.Errorf("list credential users: %w", err)
	}
	defer rows.Close()

	var out []CredentialUser
	for rows.Next() {
		var u CredentialUser
		if err := rows.Scan(&u.UserID, &u.HasRefreshToken); err != nil {
			return nil, fmt.Errorf("scan credential user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Credentials implementa betfair.CredentialStore: único caminho de leitura
// das colunas de token. Ausência de linha vira registro vazio, não erro.
func (p *Postgres) Credentials(ctx context.Context, userID string) (*betfair.Credentials, error) {
	cr := &betfair.Credentials{UserID: userID}

	var access, refresh []byte
	var expiry sql.NullTime
	err := p.db.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, token_expiry
		FROM user_credentials WHERE user_id = $1`, userID).
		Scan(&access, &refresh, &expiry)
	if err == sql.ErrNoRows {
		return cr, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credentials %s: %w", userID, err)
	}

	cr.AccessToken = access
	cr.RefreshToken = refresh
	if expiry.Valid {
		cr.Expiry = expiry.Time
	}
	return cr, nil
}

// SaveCredentials grava o material renovado: access token e expiry sempre na
// mesma escrita, nunca um sem o outro
func (p *Postgres) SaveCredentials(ctx context.Context, cr *betfair.Credentials) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO user_credentials (user_id, access_token, refresh_token, token_expiry, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expiry = EXCLUDED.token_expiry,
			updated_at = NOW()`,
		cr.UserID, cr.AccessToken, cr.RefreshToken, cr.Expiry)
	if err != nil {
		return fmt.Errorf("save credentials %s: %w", cr.UserID, err)
	}
	return nil
}

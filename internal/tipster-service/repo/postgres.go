package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/Dzasterpeace/xcloudbot/internal/betfair"
	"github.com/Dzasterpeace/xcloudbot/internal/tipster-service/dto"
)

// Postgres implementa a persistência do tipster-service
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório do tipster-service
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// GetSystem carrega um sistema pelo id
func (p *Postgres) GetSystem(ctx context.Context, id string) (*System, error) {
	var s System
	err := p.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, system_type FROM systems WHERE id = $1`, id).
		Scan(&s.ID, &s.UserID, &s.Name, &s.SystemType)
	if err != nil {
		return nil, fmt.Errorf("get system %s: %w", id, err)
	}
	return &s, nil
}

// CreateTip insere um palpite novo e devolve o id
func (p *Postgres) CreateTip(ctx context.Context, t *Tip) (string, error) {
	id := uuid.NewString()
	stakeType := t.StakeType
	if stakeType == "" {
		stakeType = "real"
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO tips (id, system_id, race_time, course, horse, stake_type)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		id, t.SystemID, t.RaceTime, t.Course, t.Horse, stakeType)
	if err != nil {
		return "", fmt.Errorf("create tip: %w", err)
	}
	return id, nil
}

// CreatePendingStake insere uma stake com status pending
func (p *Postgres) CreatePendingStake(ctx context.Context, userID, tipID string, stake float64) (string, error) {
	id := uuid.NewString()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO stakes (id, user_id, tip_id, stake, status)
		VALUES ($1,$2,$3,$4,'pending')`,
		id, userID, tipID, stake)
	if err != nil {
		return "", fmt.Errorf("create pending stake: %w", err)
	}
	return id, nil
}

// ListPendingBets lista as apostas pendentes de um usuário com dados do
// palpite e do sistema
func (p *Postgres) ListPendingBets(ctx context.Context, userID string) ([]dto.PendingBetRow, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT to_char(t.race_time, 'HH24:MI'), t.course, t.horse, st.stake, s.name
		FROM stakes st
		JOIN tips t ON t.id = st.tip_id
		JOIN systems s ON s.id = t.system_id
		WHERE st.user_id = $1 AND st.status = 'pending'
		ORDER BY t.race_time`, userID)
	if err != nil {
		return nil, fmt.Errorf("list pending bets: %w", err)
	}
	defer rows.Close()

	var out []dto.PendingBetRow
	for rows.Next() {
		var r dto.PendingBetRow
		if err := rows.Scan(&r.Time, &r.Course, &r.Horse, &r.Stake, &r.System); err != nil {
			return nil, fmt.Errorf("scan pending bet: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ClearCredentials desconecta a conta Betfair do usuário: apaga access token,
// refresh token e expiry na mesma escrita
func (p *Postgres) ClearCredentials(ctx context.Context, userID string) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE user_credentials
		SET access_token = NULL, refresh_token = NULL, token_expiry = NULL, updated_at = NOW()
		WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear credentials %s: %w", userID, err)
	}
	return nil
}

// Credentials implementa betfair.CredentialStore pro fluxo de conexão OAuth
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

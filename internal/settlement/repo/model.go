package repo

import "time"

// Status de uma stake. Transições só andam pra frente:
// pending -> in_progress -> placed|expired|failed, ou de volta a pending
// quando a tentativa falha de forma retentável (retry no próximo ciclo).
// placed, expired e failed são terminais; failed é reservado pra stake cujo
// palpite sumiu do banco.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusPlaced     = "placed"
	StatusExpired    = "expired"
	StatusFailed     = "failed"
)

// Stake é a intenção de aposta de um usuário contra um palpite publicado.
type Stake struct {
	ID        string
	UserID    string
	TipID     string
	Stake     float64
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tip é um palpite publicado, imutável depois de criado.
// SystemType vem do join com systems ('back' | 'lay').
type Tip struct {
	ID         string
	SystemID   string
	RaceTime   time.Time
	Course     string
	Horse      string
	StakeType  string
	SystemType string
}

// CredentialUser diz se um usuário tem refresh token gravado, sem abrir o selo.
type CredentialUser struct {
	UserID          string
	HasRefreshToken bool
}

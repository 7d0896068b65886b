package betfair

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoRefreshToken indica usuário sem conta Betfair conectada (sem refresh token gravado).
var ErrNoRefreshToken = errors.New("betfair: no refresh token stored")

// ErrTokenRejected indica resposta do endpoint de token sem access_token.
var ErrTokenRejected = errors.New("betfair: token endpoint did not return an access token")

// AuthError indica falha ao obter ou renovar o access token de um usuário.
// Condição esperada e retryável: o chamador registra por item, nunca derruba o processo.
type AuthError struct {
	UserID  string
	Payload string // corpo bruto devolvido pelo endpoint de token, quando houver
	Err     error
}

func (e *AuthError) Error() string {
	if e.Payload != "" {
		return fmt.Sprintf("betfair auth failed for user %s: %s", e.UserID, e.Payload)
	}
	return fmt.Sprintf("betfair auth failed for user %s: %v", e.UserID, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ResolutionError indica que o course/horário/corredor não foi resolvido em
// market/selection. Carrega a janela de busca pra diagnóstico.
type ResolutionError struct {
	Runner string
	Course string
	From   time.Time
	To     time.Time
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("betfair market lookup failed for %q at %q: %v", e.Runner, e.Course, e.Err)
	}
	return fmt.Sprintf("betfair: runner %q not found at %q between %s and %s",
		e.Runner, e.Course, e.From.Format(time.RFC3339), e.To.Format(time.RFC3339))
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// PlacementError indica ordem rejeitada pelo venue ou falha de transporte.
// Payload preserva a resposta bruta para auditoria.
type PlacementError struct {
	Status  string
	Payload string
	Err     error
}

func (e *PlacementError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("betfair place order failed: %v", e.Err)
	}
	return fmt.Sprintf("betfair place order rejected (status=%s): %s", e.Status, e.Payload)
}

func (e *PlacementError) Unwrap() error { return e.Err }

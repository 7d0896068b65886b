package betfair

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Dzasterpeace/xcloudbot/internal/shared/vault"
)

// Credentials é o registro de credencial delegada de um usuário.
// Tokens sempre em bytes selados pelo cofre; expiry zero significa "sem token".
type Credentials struct {
	UserID       string
	AccessToken  []byte // selado
	RefreshToken []byte // selado
	Expiry       time.Time
}

// CredentialStore é o único caminho de leitura/escrita das credenciais.
// Nenhum outro código consulta as colunas de token diretamente.
type CredentialStore interface {
	Credentials(ctx context.Context, userID string) (*Credentials, error)
	SaveCredentials(ctx context.Context, c *Credentials) error
}

// Config agrupa credenciais de cliente e endpoints da Betfair.
// Injetado explicitamente nos construtores pra testes poderem apontar fakes.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	AuthURL      string
	TokenURL     string
	CatalogueURL string
	OrdersURL    string

	Timeout time.Duration
}

// Client fala com a API da Betfair: troca/renova tokens, resolve mercados e envia ordens.
type Client struct {
	cfg   Config
	log   *zap.Logger
	creds CredentialStore
	vault *vault.Vault
	http  *http.Client
	now   func() time.Time
}

func New(cfg Config, log *zap.Logger, creds CredentialStore, v *vault.Vault) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:   cfg,
		log:   log,
		creds: creds,
		vault: v,
		http:  &http.Client{Timeout: cfg.Timeout},
		now:   time.Now,
	}
}

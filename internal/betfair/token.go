package betfair

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Margem de segurança: token que expira em menos de 60s já é tratado como vencido.
const expiryMargin = 60 * time.Second

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// AccessToken devolve um access token válido para o usuário.
// Se o token gravado expira em mais de 60s, devolve ele aberto sem ir à rede;
// caso contrário renova via refresh token. Falhas viram *AuthError.
func (c *Client) AccessToken(ctx context.Context, userID string) (string, error) {
	cr, err := c.creds.Credentials(ctx, userID)
	if err != nil {
		return "", &AuthError{UserID: userID, Err: err}
	}

	if len(cr.AccessToken) > 0 && cr.Expiry.After(c.now().Add(expiryMargin)) {
		token, err := c.vault.Unseal(cr.AccessToken)
		if err != nil {
			// cofre com chave trocada ou registro corrompido: só reconectar resolve
			return "", &AuthError{UserID: userID, Err: err}
		}
		return string(token), nil
	}

	return c.refresh(ctx, cr)
}

// RefreshUser renova o token de um usuário incondicionalmente (caminho proativo
// do ciclo de refresh e do endpoint manual), ignorando a margem de 60s.
func (c *Client) RefreshUser(ctx context.Context, userID string) error {
	cr, err := c.creds.Credentials(ctx, userID)
	if err != nil {
		return &AuthError{UserID: userID, Err: err}
	}
	_, err = c.refresh(ctx, cr)
	return err
}

// refresh troca o refresh token gravado por um novo access token.
// Persiste token+expiry juntos antes de devolver; se a persistência falhar,
// loga e devolve o token mesmo assim (ele continua válido em memória).
func (c *Client) refresh(ctx context.Context, cr *Credentials) (string, error) {
	if len(cr.RefreshToken) == 0 {
		return "", &AuthError{UserID: cr.UserID, Err: ErrNoRefreshToken}
	}

	refreshToken, err := c.vault.Unseal(cr.RefreshToken)
	if err != nil {
		return "", &AuthError{UserID: cr.UserID, Err: err}
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {string(refreshToken)},
	}

	tok, raw, err := c.tokenRequest(ctx, form)
	if err != nil {
		return "", &AuthError{UserID: cr.UserID, Payload: raw, Err: err}
	}

	if err := c.applyAndSave(ctx, cr, tok); err != nil {
		c.log.Warn("persist refreshed credentials",
			zap.String("userId", cr.UserID), zap.Error(err))
	}

	return tok.AccessToken, nil
}

// ExchangeCode troca o authorization code do callback OAuth pelos tokens iniciais
// e grava as credenciais do usuário. Aqui a persistência é obrigatória.
func (c *Client) ExchangeCode(ctx context.Context, userID, code string) error {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {c.cfg.RedirectURI},
	}

	tok, raw, err := c.tokenRequest(ctx, form)
	if err != nil {
		return &AuthError{UserID: userID, Payload: raw, Err: err}
	}

	cr := &Credentials{UserID: userID}
	if err := c.applyAndSave(ctx, cr, tok); err != nil {
		return err
	}
	return nil
}

// AuthorizeURL monta a URL de autorização que o frontend abre pro usuário.
func (c *Client) AuthorizeURL() string {
	q := url.Values{
		"response_type": {"code"},
		"client_id":     {c.cfg.ClientID},
		"redirect_uri":  {c.cfg.RedirectURI},
	}
	return c.cfg.AuthURL + "?" + q.Encode()
}

// tokenRequest faz o POST form-encoded com basic auth das credenciais de cliente.
func (c *Client) tokenRequest(ctx context.Context, form url.Values) (*tokenResponse, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, string(body), err
	}
	if tok.AccessToken == "" {
		return nil, string(body), ErrTokenRejected
	}
	return &tok, string(body), nil
}

// applyAndSave sela e grava o material novo: access token e expiry sempre juntos;
// refresh token só quando o venue rotacionou (ausência = mantém o atual).
func (c *Client) applyAndSave(ctx context.Context, cr *Credentials, tok *tokenResponse) error {
	sealed, err := c.vault.Seal([]byte(tok.AccessToken))
	if err != nil {
		return err
	}
	cr.AccessToken = sealed
	cr.Expiry = c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)

	if tok.RefreshToken != "" {
		sealedRefresh, err := c.vault.Seal([]byte(tok.RefreshToken))
		if err != nil {
			return err
		}
		cr.RefreshToken = sealedRefresh
	}

	return c.creds.SaveCredentials(ctx, cr)
}

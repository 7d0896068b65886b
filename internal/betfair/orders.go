package betfair

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type Side string

const (
	Back Side = "BACK"
	Lay  Side = "LAY"
)

type limitOrder struct {
	Size            float64 `json:"size"`
	Price           float64 `json:"price"`
	PersistenceType string  `json:"persistenceType"`
}

type instruction struct {
	SelectionID int64      `json:"selectionId"`
	Handicap    float64    `json:"handicap"`
	Side        Side       `json:"side"`
	OrderType   string     `json:"orderType"`
	LimitOrder  limitOrder `json:"limitOrder"`
}

type placeOrdersRequest struct {
	MarketID     string        `json:"marketId"`
	Instructions []instruction `json:"instructions"`
	CustomerRef  string        `json:"customerRef"`
}

// PlacementResult carrega o desfecho de uma submissão, com a resposta bruta
// do venue preservada pra auditoria.
type PlacementResult struct {
	Success bool
	Status  string
	Payload json.RawMessage
}

// Place envia exatamente uma ordem limit (LAPSE) pro market/selection resolvido.
// O token vem do broker; se a autenticação falhar, o endpoint de ordens nem é
// chamado. Sem retry interno: a política de retry é do ciclo de liquidação.
// ref identifica a stake e vira o customerRef de idempotência no venue.
func (c *Client) Place(ctx context.Context, userID string, sel Selection, side Side, stake, price float64, ref string) (*PlacementResult, error) {
	if side != Back && side != Lay {
		return nil, fmt.Errorf("betfair: invalid side %q", side)
	}
	if stake <= 0 || price <= 0 {
		return nil, fmt.Errorf("betfair: stake and price must be positive (stake=%v price=%v)", stake, price)
	}

	token, err := c.AccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	payload := placeOrdersRequest{
		MarketID: sel.MarketID,
		Instructions: []instruction{{
			SelectionID: sel.SelectionID,
			Handicap:    0,
			Side:        side,
			OrderType:   "LIMIT",
			LimitOrder: limitOrder{
				Size:            stake,
				Price:           price,
				PersistenceType: "LAPSE",
			},
		}},
		CustomerRef: "xcloudbot-" + ref,
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OrdersURL, bytes.NewReader(body))
	if err != nil {
		return nil, &PlacementError{Err: err}
	}
	req.Header.Set("X-Application", c.cfg.ClientID)
	req.Header.Set("X-Authentication", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// timeout e erro de rede contam como rejeição retryável
		return nil, &PlacementError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &PlacementError{Err: err}
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &PlacementError{Payload: string(raw), Err: err}
	}

	result := &PlacementResult{Status: out.Status, Payload: raw}
	if out.Status != "SUCCESS" {
		return result, &PlacementError{Status: out.Status, Payload: string(raw)}
	}

	result.Success = true
	return result, nil
}

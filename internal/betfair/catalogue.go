package betfair

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// eventTypeHorseRacing é o id fixo de corrida de cavalos no catálogo da Betfair.
const eventTypeHorseRacing = "7"

// Janela de busca em volta do horário da corrida.
const resolveWindow = 5 * time.Minute

type timeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type marketFilter struct {
	TextQuery       string     `json:"textQuery,omitempty"`
	EventTypeIds    []string   `json:"eventTypeIds,omitempty"`
	MarketStartTime *timeRange `json:"marketStartTime,omitempty"`
}

type catalogueRequest struct {
	Filter           marketFilter `json:"filter"`
	MaxResults       string       `json:"maxResults"`
	MarketProjection []string     `json:"marketProjection"`
}

type catalogueRunner struct {
	SelectionID int64  `json:"selectionId"`
	RunnerName  string `json:"runnerName"`
}

type catalogueMarket struct {
	MarketID string            `json:"marketId"`
	Runners  []catalogueRunner `json:"runners"`
}

// Selection é o par (market, selection) efêmero resolvido pra um palpite.
// Nunca cacheado entre ciclos: ids de mercado mudam perto da largada.
type Selection struct {
	MarketID    string
	SelectionID int64
}

// Resolve mapeia (course, horário, corredor) para o market/selection da Betfair.
// Consulta o catálogo com a janela em volta do horário e faz match exato
// case-insensitive no nome do corredor; o primeiro match ganha (política
// documentada: o catálogo não dá sinal extra de desempate).
func (c *Client) Resolve(ctx context.Context, userID, course string, raceTime time.Time, runnerName string) (*Selection, error) {
	token, err := c.AccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	from := raceTime.Add(-resolveWindow).UTC()
	to := raceTime.Add(resolveWindow).UTC()

	payload := catalogueRequest{
		Filter: marketFilter{
			TextQuery:    course,
			EventTypeIds: []string{eventTypeHorseRacing},
			MarketStartTime: &timeRange{
				From: from.Format(time.RFC3339),
				To:   to.Format(time.RFC3339),
			},
		},
		// lookup de catálogo é caro; um filtro correto devolve poucos mercados
		MaxResults:       "10",
		MarketProjection: []string{"RUNNER_METADATA"},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.CatalogueURL, bytes.NewReader(body))
	if err != nil {
		return nil, &ResolutionError{Runner: runnerName, Course: course, From: from, To: to, Err: err}
	}
	req.Header.Set("X-Application", c.cfg.ClientID)
	req.Header.Set("X-Authentication", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ResolutionError{Runner: runnerName, Course: course, From: from, To: to, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ResolutionError{Runner: runnerName, Course: course, From: from, To: to, Err: err}
	}
	if resp.StatusCode >= 300 {
		return nil, &ResolutionError{Runner: runnerName, Course: course, From: from, To: to,
			Err: fmt.Errorf("catalogue http %s: %s", resp.Status, raw)}
	}

	var markets []catalogueMarket
	if err := json.Unmarshal(raw, &markets); err != nil {
		return nil, &ResolutionError{Runner: runnerName, Course: course, From: from, To: to, Err: err}
	}

	for _, market := range markets {
		for _, runner := range market.Runners {
			if strings.EqualFold(runner.RunnerName, runnerName) {
				return &Selection{MarketID: market.MarketID, SelectionID: runner.SelectionID}, nil
			}
		}
	}

	return nil, &ResolutionError{Runner: runnerName, Course: course, From: from, To: to}
}

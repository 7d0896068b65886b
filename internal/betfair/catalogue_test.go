package betfair

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeWithToken devolve um fakeStore com access token válido por 2h,
// pra exercitar o caminho sem refresh.
func storeWithToken(t *testing.T, c *Client, userID, token string) *fakeStore {
	t.Helper()
	return &fakeStore{creds: map[string]*Credentials{
		userID: {
			UserID:      userID,
			AccessToken: seal(t, c.vault, token),
			Expiry:      time.Now().Add(2 * time.Hour),
		},
	}}
}

func TestResolveMatchesRunnerCaseInsensitive(t *testing.T) {
	raceTime := time.Date(2026, 9, 12, 14, 30, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "client-id", r.Header.Get("X-Application"))
		assert.Equal(t, "tok", r.Header.Get("X-Authentication"))

		var req catalogueRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Ascot", req.Filter.TextQuery)
		assert.Equal(t, []string{eventTypeHorseRacing}, req.Filter.EventTypeIds)
		assert.Equal(t, "10", req.MaxResults)
		assert.Equal(t, []string{"RUNNER_METADATA"}, req.MarketProjection)
		require.NotNil(t, req.Filter.MarketStartTime)
		assert.Equal(t, raceTime.Add(-resolveWindow).Format(time.RFC3339), req.Filter.MarketStartTime.From)
		assert.Equal(t, raceTime.Add(resolveWindow).Format(time.RFC3339), req.Filter.MarketStartTime.To)

		_, _ = w.Write([]byte(`[
			{"marketId":"1.111","runners":[{"selectionId":101,"runnerName":"Other Horse"}]},
			{"marketId":"1.222","runners":[
				{"selectionId":201,"runnerName":"THUNDER BOLT"},
				{"selectionId":202,"runnerName":"Slowpoke"}
			]}
		]`))
	}))
	defer srv.Close()

	v := newTestVault(t)
	c := newTestClient(t, Config{CatalogueURL: srv.URL}, nil, v)
	c.creds = storeWithToken(t, c, "u1", "tok")

	sel, err := c.Resolve(context.Background(), "u1", "Ascot", raceTime, "Thunder Bolt")
	require.NoError(t, err)
	assert.Equal(t, "1.222", sel.MarketID)
	assert.EqualValues(t, 201, sel.SelectionID)
}

func TestResolveFirstMatchWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// nome duplicado entre mercados: a ordem de retorno decide
		_, _ = w.Write([]byte(`[
			{"marketId":"1.111","runners":[{"selectionId":11,"runnerName":"Dup"}]},
			{"marketId":"1.222","runners":[{"selectionId":22,"runnerName":"Dup"}]}
		]`))
	}))
	defer srv.Close()

	v := newTestVault(t)
	c := newTestClient(t, Config{CatalogueURL: srv.URL}, nil, v)
	c.creds = storeWithToken(t, c, "u1", "tok")

	sel, err := c.Resolve(context.Background(), "u1", "Ascot", time.Now().Add(time.Hour), "Dup")
	require.NoError(t, err)
	assert.Equal(t, "1.111", sel.MarketID)
}

func TestResolveNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"marketId":"1.111","runners":[{"selectionId":1,"runnerName":"Someone Else"}]}]`))
	}))
	defer srv.Close()

	v := newTestVault(t)
	c := newTestClient(t, Config{CatalogueURL: srv.URL}, nil, v)
	c.creds = storeWithToken(t, c, "u1", "tok")

	raceTime := time.Date(2026, 9, 12, 14, 30, 0, 0, time.UTC)
	_, err := c.Resolve(context.Background(), "u1", "Ascot", raceTime, "Thunder Bolt")

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "Thunder Bolt", resErr.Runner)
	assert.Equal(t, "Ascot", resErr.Course)
	assert.Equal(t, raceTime.Add(-resolveWindow), resErr.From)
	assert.Equal(t, raceTime.Add(resolveWindow), resErr.To)
}

func TestResolveEmptyCatalogue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	v := newTestVault(t)
	c := newTestClient(t, Config{CatalogueURL: srv.URL}, nil, v)
	c.creds = storeWithToken(t, c, "u1", "tok")

	_, err := c.Resolve(context.Background(), "u1", "Ascot", time.Now().Add(time.Hour), "Thunder Bolt")
	var resErr *ResolutionError
	assert.ErrorAs(t, err, &resErr)
}

func TestResolveHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := newTestVault(t)
	c := newTestClient(t, Config{CatalogueURL: srv.URL}, nil, v)
	c.creds = storeWithToken(t, c, "u1", "tok")

	_, err := c.Resolve(context.Background(), "u1", "Ascot", time.Now().Add(time.Hour), "Thunder Bolt")
	var resErr *ResolutionError
	assert.ErrorAs(t, err, &resErr)
}

func TestResolveMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}))
	defer srv.Close()

	v := newTestVault(t)
	c := newTestClient(t, Config{CatalogueURL: srv.URL}, nil, v)
	c.creds = storeWithToken(t, c, "u1", "tok")

	_, err := c.Resolve(context.Background(), "u1", "Ascot", time.Now().Add(time.Hour), "Thunder Bolt")
	var resErr *ResolutionError
	assert.ErrorAs(t, err, &resErr)
}

func TestResolveAuthFailurePropagates(t *testing.T) {
	v := newTestVault(t)
	// sem refresh token e sem access token: o broker falha antes do catálogo
	c := newTestClient(t, Config{CatalogueURL: "http://127.0.0.1:0"}, &fakeStore{creds: map[string]*Credentials{}}, v)

	_, err := c.Resolve(context.Background(), "u1", "Ascot", time.Now().Add(time.Hour), "Thunder Bolt")
	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
}

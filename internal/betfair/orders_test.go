package betfair

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceSuccess(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)

		assert.Equal(t, "client-id", r.Header.Get("X-Application"))
		assert.Equal(t, "tok", r.Header.Get("X-Authentication"))

		var req placeOrdersRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "1.222", req.MarketID)
		assert.Equal(t, "xcloudbot-stake-42", req.CustomerRef)
		require.Len(t, req.Instructions, 1)
		in := req.Instructions[0]
		assert.EqualValues(t, 201, in.SelectionID)
		assert.Equal(t, Back, in.Side)
		assert.Equal(t, "LIMIT", in.OrderType)
		assert.Equal(t, 2.5, in.LimitOrder.Size)
		assert.Equal(t, 1.01, in.LimitOrder.Price)
		assert.Equal(t, "LAPSE", in.LimitOrder.PersistenceType)

		_, _ = w.Write([]byte(`{"status":"SUCCESS","marketId":"1.222"}`))
	}))
	defer srv.Close()

	v := newTestVault(t)
	c := newTestClient(t, Config{OrdersURL: srv.URL}, nil, v)
	c.creds = storeWithToken(t, c, "u1", "tok")

	res, err := c.Place(context.Background(), "u1", Selection{MarketID: "1.222", SelectionID: 201}, Back, 2.5, 1.01, "stake-42")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "SUCCESS", res.Status)
	assert.Contains(t, string(res.Payload), "SUCCESS")

	// exatamente uma submissão por chamada
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestPlaceVenueRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"FAILURE","errorCode":"INSUFFICIENT_FUNDS"}`))
	}))
	defer srv.Close()

	v := newTestVault(t)
	c := newTestClient(t, Config{OrdersURL: srv.URL}, nil, v)
	c.creds = storeWithToken(t, c, "u1", "tok")

	res, err := c.Place(context.Background(), "u1", Selection{MarketID: "1.1", SelectionID: 1}, Back, 2, 1.01, "s1")

	var placeErr *PlacementError
	require.ErrorAs(t, err, &placeErr)
	assert.Equal(t, "FAILURE", placeErr.Status)
	assert.Contains(t, placeErr.Payload, "INSUFFICIENT_FUNDS")

	// resposta bruta preservada pra auditoria mesmo na rejeição
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Contains(t, string(res.Payload), "INSUFFICIENT_FUNDS")
}

func TestPlaceTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // conexão recusada

	v := newTestVault(t)
	c := newTestClient(t, Config{OrdersURL: srv.URL}, nil, v)
	c.creds = storeWithToken(t, c, "u1", "tok")

	_, err := c.Place(context.Background(), "u1", Selection{MarketID: "1.1", SelectionID: 1}, Back, 2, 1.01, "s1")
	var placeErr *PlacementError
	assert.ErrorAs(t, err, &placeErr)
}

func TestPlaceAuthFailureSkipsOrderEndpoint(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	v := newTestVault(t)
	c := newTestClient(t, Config{OrdersURL: srv.URL}, &fakeStore{creds: map[string]*Credentials{}}, v)

	_, err := c.Place(context.Background(), "u1", Selection{MarketID: "1.1", SelectionID: 1}, Back, 2, 1.01, "s1")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.EqualValues(t, 0, atomic.LoadInt32(&calls))
}

func TestPlaceValidatesInput(t *testing.T) {
	v := newTestVault(t)
	c := newTestClient(t, Config{}, &fakeStore{creds: map[string]*Credentials{}}, v)

	sel := Selection{MarketID: "1.1", SelectionID: 1}

	_, err := c.Place(context.Background(), "u1", sel, Side("DRAW"), 2, 1.01, "s1")
	assert.Error(t, err)

	_, err = c.Place(context.Background(), "u1", sel, Back, 0, 1.01, "s1")
	assert.Error(t, err)

	_, err = c.Place(context.Background(), "u1", sel, Lay, 2, -1, "s1")
	assert.Error(t, err)
}

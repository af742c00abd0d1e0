package broker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{APIKey: "key", APISecret: "secret", BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestSubmitOrder(t *testing.T) {
	var got map[string]string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/orders", r.URL.Path)
		require.Equal(t, "key", r.Header.Get("APCA-API-KEY-ID"))
		require.Equal(t, "secret", r.Header.Get("APCA-API-SECRET-KEY"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(Order{ID: "ord-1", Symbol: got["symbol"], Status: "accepted"})
	})

	order, err := c.SubmitOrder(context.Background(), "AAPL", 1, "buy")
	require.NoError(t, err)

	assert.Equal(t, "ord-1", order.ID)
	assert.Equal(t, "AAPL", got["symbol"])
	assert.Equal(t, "1", got["qty"])
	assert.Equal(t, "buy", got["side"])
	assert.Equal(t, "market", got["type"])
	assert.Equal(t, "gtc", got["time_in_force"])
	assert.NotEmpty(t, got["client_order_id"])
}

func TestSubmitOrder_FreshClientOrderIDs(t *testing.T) {
	seen := map[string]bool{}
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		seen[body["client_order_id"]] = true
		_ = json.NewEncoder(w).Encode(Order{ID: "x"})
	})

	for i := 0; i < 3; i++ {
		_, err := c.SubmitOrder(context.Background(), "AAPL", 1, "buy")
		require.NoError(t, err)
	}
	assert.Len(t, seen, 3)
}

func TestGetAccount(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/account", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Account{Equity: "100000.50", Cash: "25000"})
	})

	acct, err := c.GetAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "100000.50", acct.Equity)
	assert.Equal(t, "25000", acct.Cash)
}

func TestListPositions(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/positions", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]Position{
			{Symbol: "AAPL", Qty: "2", UnrealizedPL: "10.5", CurrentPrice: "190.0"},
		})
	})

	positions, err := c.ListPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "AAPL", positions[0].Symbol)
}

func TestStatusError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"forbidden"}`, http.StatusForbidden)
	})

	_, err := c.SubmitOrder(context.Background(), "AAPL", 1, "buy")
	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusForbidden, serr.Code)
}

func TestNew_RequiresCredentials(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("want error without api key/secret")
	}
}

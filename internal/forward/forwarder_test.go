package forward

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkovacs/trading-bridge/internal/signal"
)

func TestForward_PostsPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := New(srv.URL, time.Second)
	res := f.Forward(context.Background(), &signal.Signal{Action: signal.Buy, Symbol: "AAPL", Price: 123.45})

	assert.True(t, res.Delivered)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "BUY", got["signal"])
	assert.Equal(t, "AAPL", got["symbol"])
	assert.Equal(t, 123.45, got["price"])
}

func TestForward_ErrorStatusStillDelivered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	f := New(srv.URL, time.Second)
	res := f.Forward(context.Background(), &signal.Signal{Action: signal.Sell, Symbol: "TSLA", Price: 9.99})

	assert.True(t, res.Delivered)
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
}

func TestForward_ConnectionRefusedSwallowed(t *testing.T) {
	// grab a port nobody listens on
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	f := New(url, time.Second)
	res := f.Forward(context.Background(), &signal.Signal{Action: signal.Buy, Symbol: "NVDA", Price: 1.23})

	assert.False(t, res.Delivered)
}

func TestForward_RefusesNonActionable(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	f := New(srv.URL, time.Second)
	res := f.Forward(context.Background(), &signal.Signal{Action: signal.Buy, Symbol: "TSLA", Price: 0})

	assert.False(t, res.Delivered)
	assert.False(t, called, "forwarder must never post an invalid signal")
}

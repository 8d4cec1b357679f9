package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCoinGeckoClient_Quotes(t *testing.T) {
	var gotIDs, gotVs, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		gotIDs = r.URL.Query().Get("ids")
		gotVs = r.URL.Query().Get("vs_currencies")
		gotKey = r.Header.Get(coingeckoAPIKeyHeader)
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":60000.5,"cny":430000},"tether":{"usd":1,"cny":7.1}}`))
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL+"/", "demo-key", time.Second, 0, zap.NewNop())

	quotes, err := c.Quotes(context.Background(), []string{"Tether", "bitcoin", "", "BITCOIN", "unknown-coin"})
	require.NoError(t, err)

	assert.Equal(t, "bitcoin,tether,unknown-coin", gotIDs)
	assert.Equal(t, "usd,cny", gotVs)
	assert.Equal(t, "demo-key", gotKey)

	require.Len(t, quotes, 2)
	assert.True(t, quotes["bitcoin"].USD.Equal(decimal.RequireFromString("60000.5")))
	assert.True(t, quotes["tether"].CNY.Equal(decimal.RequireFromString("7.1")))
	_, ok := quotes["unknown-coin"]
	assert.False(t, ok)
}

func TestCoinGeckoClient_NoIDsSkipsRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL, "", time.Second, 0, zap.NewNop())
	quotes, err := c.Quotes(context.Background(), []string{" "})
	require.NoError(t, err)
	assert.Empty(t, quotes)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestCoinGeckoClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":1,"cny":2}}`))
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL, "", time.Second, 1, zap.NewNop())
	quotes, err := c.Quotes(context.Background(), []string{"bitcoin"})
	require.NoError(t, err)
	assert.Len(t, quotes, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCoinGeckoClient_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid vs_currencies"}`))
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL, "", time.Second, 3, zap.NewNop())
	_, err := c.Quotes(context.Background(), []string{"bitcoin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCoinGeckoClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL, "", time.Second, 2, zap.NewNop())
	_, err := c.Quotes(context.Background(), []string{"bitcoin"})
	require.Error(t, err)
}

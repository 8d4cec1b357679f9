package prices

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/finbook/internal/domain"
)

type mockStore struct{ mock.Mock }

func (m *mockStore) Currencies(ctx context.Context) ([]domain.Currency, error) {
	args := m.Called(ctx)
	c, _ := args.Get(0).([]domain.Currency)
	return c, args.Error(1)
}

func (m *mockStore) UpdateCurrencyPrice(ctx context.Context, currencyID string, price domain.CurrencyPrice) error {
	return m.Called(ctx, currencyID, price).Error(0)
}

func (m *mockStore) InsertPriceHistory(ctx context.Context, name string, price domain.CurrencyPrice, at time.Time) error {
	return m.Called(ctx, name, price, at).Error(0)
}

type mockFeed struct{ mock.Mock }

func (m *mockFeed) Quotes(ctx context.Context, coinIDs []string) (domain.Quotes, error) {
	args := m.Called(ctx, coinIDs)
	q, _ := args.Get(0).(domain.Quotes)
	return q, args.Error(1)
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRefresher(store *mockStore, feed *mockFeed) *Refresher {
	r := NewRefresher(store, feed, 2)
	r.now = func() time.Time { return fixedNow }
	return r
}

func price(usd, cny string) domain.CurrencyPrice {
	return domain.CurrencyPrice{USD: decimal.RequireFromString(usd), CNY: decimal.RequireFromString(cny)}
}

func TestRefresher_Run(t *testing.T) {
	store := &mockStore{}
	feed := &mockFeed{}

	store.On("Currencies", mock.Anything).Return([]domain.Currency{
		{ID: "c-btc", Name: "BTC", CoinID: "Bitcoin"},
		{ID: "c-eth", Name: "ETH", CoinID: "ethereum"},
		{ID: "c-usd", Name: "USD"},
	}, nil)
	feed.On("Quotes", mock.Anything, []string{"bitcoin", "ethereum"}).Return(domain.Quotes{
		"bitcoin":  price("50000", "350000"),
		"ethereum": price("3000", "21000"),
	}, nil)

	store.On("UpdateCurrencyPrice", mock.Anything, "c-btc", price("50000", "350000")).Return(nil)
	store.On("UpdateCurrencyPrice", mock.Anything, "c-eth", price("3000", "21000")).Return(nil)
	store.On("InsertPriceHistory", mock.Anything, "BTC", price("50000", "350000"), fixedNow).Return(nil)
	store.On("InsertPriceHistory", mock.Anything, "ETH", price("3000", "21000"), fixedNow).Return(nil)

	res, err := newTestRefresher(store, feed).Run(context.Background(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 0, res.Failed)
	store.AssertExpectations(t)
	feed.AssertExpectations(t)
}

func TestRefresher_FailureDoesNotStopOthers(t *testing.T) {
	store := &mockStore{}
	feed := &mockFeed{}

	store.On("Currencies", mock.Anything).Return([]domain.Currency{
		{ID: "c-btc", Name: "BTC", CoinID: "bitcoin"},
		{ID: "c-eth", Name: "ETH", CoinID: "ethereum"},
	}, nil)
	feed.On("Quotes", mock.Anything, mock.Anything).Return(domain.Quotes{
		"bitcoin":  price("50000", "350000"),
		"ethereum": price("3000", "21000"),
	}, nil)

	store.On("UpdateCurrencyPrice", mock.Anything, "c-btc", mock.Anything).Return(errors.New("rate limited"))
	store.On("UpdateCurrencyPrice", mock.Anything, "c-eth", mock.Anything).Return(nil)
	store.On("InsertPriceHistory", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	res, err := newTestRefresher(store, feed).Run(context.Background(), zap.NewNop())
	require.ErrorIs(t, err, ErrPartialRefresh)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Failed)
	store.AssertNumberOfCalls(t, "InsertPriceHistory", 2)
}

func TestRefresher_MissingQuoteIsSkipped(t *testing.T) {
	store := &mockStore{}
	feed := &mockFeed{}

	store.On("Currencies", mock.Anything).Return([]domain.Currency{
		{ID: "c-btc", Name: "BTC", CoinID: "bitcoin"},
		{ID: "c-xyz", Name: "XYZ", CoinID: "xyz-token"},
	}, nil)
	feed.On("Quotes", mock.Anything, mock.Anything).Return(domain.Quotes{
		"bitcoin": price("50000", "350000"),
	}, nil)
	store.On("UpdateCurrencyPrice", mock.Anything, "c-btc", mock.Anything).Return(nil)
	store.On("InsertPriceHistory", mock.Anything, "BTC", mock.Anything, mock.Anything).Return(nil)

	res, err := newTestRefresher(store, feed).Run(context.Background(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	store.AssertNotCalled(t, "UpdateCurrencyPrice", mock.Anything, "c-xyz", mock.Anything)
}

func TestRefresher_FeedErrorAborts(t *testing.T) {
	store := &mockStore{}
	feed := &mockFeed{}

	store.On("Currencies", mock.Anything).Return([]domain.Currency{{ID: "c-btc", Name: "BTC", CoinID: "bitcoin"}}, nil)
	feed.On("Quotes", mock.Anything, mock.Anything).Return(nil, errors.New("feed down"))

	_, err := newTestRefresher(store, feed).Run(context.Background(), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed down")
	store.AssertNotCalled(t, "UpdateCurrencyPrice", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefresher_NothingTracked(t *testing.T) {
	store := &mockStore{}
	feed := &mockFeed{}
	store.On("Currencies", mock.Anything).Return([]domain.Currency{{ID: "c-usd", Name: "USD"}}, nil)

	res, err := newTestRefresher(store, feed).Run(context.Background(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated)
	feed.AssertNotCalled(t, "Quotes", mock.Anything, mock.Anything)
}

// peakStore counts how many currencies are being written at the same time.
type peakStore struct {
	currencies []domain.Currency
	inFlight   atomic.Int32
	peak       atomic.Int32
}

func (s *peakStore) Currencies(ctx context.Context) ([]domain.Currency, error) {
	return s.currencies, nil
}

func (s *peakStore) UpdateCurrencyPrice(ctx context.Context, currencyID string, price domain.CurrencyPrice) error {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return nil
}

func (s *peakStore) InsertPriceHistory(ctx context.Context, name string, price domain.CurrencyPrice, at time.Time) error {
	return nil
}

func TestRefresher_RespectsConcurrencyLimit(t *testing.T) {
	store := &peakStore{}
	quotes := domain.Quotes{}
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("coin-%d", i)
		store.currencies = append(store.currencies, domain.Currency{ID: "c-" + id, Name: id, CoinID: id})
		quotes[id] = price("1", "7")
	}
	feed := &mockFeed{}
	feed.On("Quotes", mock.Anything, mock.Anything).Return(quotes, nil)

	r := NewRefresher(store, feed, 0)
	res, err := r.Run(context.Background(), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 8, res.Updated)
	assert.LessOrEqual(t, store.peak.Load(), int32(defaultConcurrency))
}

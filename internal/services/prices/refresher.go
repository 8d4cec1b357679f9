// Package prices refreshes the current price of every tracked currency from the price feed.
package prices

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/finbook/internal/domain"
	"github.com/vadiminshakov/finbook/internal/services"
)

const defaultConcurrency = 2

// ErrPartialRefresh is returned when some currencies could not be refreshed.
var ErrPartialRefresh = errors.New("some currencies were not refreshed")

type currencyStore interface {
	Currencies(ctx context.Context) ([]domain.Currency, error)
	UpdateCurrencyPrice(ctx context.Context, currencyID string, price domain.CurrencyPrice) error
	InsertPriceHistory(ctx context.Context, name string, price domain.CurrencyPrice, at time.Time) error
}

type quoteFeed interface {
	Quotes(ctx context.Context, coinIDs []string) (domain.Quotes, error)
}

// Refresher updates currency prices and appends a history row per currency.
type Refresher struct {
	store       currencyStore
	feed        quoteFeed
	concurrency int
	now         func() time.Time
}

func NewRefresher(store currencyStore, feed quoteFeed, concurrency int) *Refresher {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Refresher{store: store, feed: feed, concurrency: concurrency, now: time.Now}
}

func (r *Refresher) Kind() domain.RunKind { return domain.RunPrices }

// Run refreshes every currency that has a feed id. A failure on one currency
// is logged and does not stop the others.
func (r *Refresher) Run(ctx context.Context, logger *zap.Logger) (services.Result, error) {
	currencies, err := r.store.Currencies(ctx)
	if err != nil {
		return services.Result{}, errors.Wrap(err, "fetch currencies")
	}

	tracked := make([]domain.Currency, 0, len(currencies))
	ids := make([]string, 0, len(currencies))
	for _, c := range currencies {
		if c.FeedKey() == "" {
			logger.Debug("Currency has no feed id", zap.String("currency", c.Name))
			continue
		}
		tracked = append(tracked, c)
		ids = append(ids, c.FeedKey())
	}
	if len(tracked) == 0 {
		logger.Info("No currencies to refresh")
		return services.Result{}, nil
	}

	quotes, err := r.feed.Quotes(ctx, ids)
	if err != nil {
		return services.Result{}, errors.Wrap(err, "fetch price quotes")
	}

	at := r.now()
	var updated, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, c := range tracked {
		c := c
		quote, ok := quotes[c.FeedKey()]
		if !ok {
			logger.Warn("No quote for currency", zap.String("currency", c.Name), zap.String("coin_id", c.FeedKey()))
			continue
		}
		g.Go(func() error {
			if r.refresh(gctx, logger, c, quote, at) {
				updated.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := services.Result{Updated: int(updated.Load()), Failed: int(failed.Load())}
	if res.Failed > 0 {
		return res, errors.Wrapf(ErrPartialRefresh, "%d of %d failed", res.Failed, res.Failed+res.Updated)
	}
	return res, nil
}

func (r *Refresher) refresh(ctx context.Context, logger *zap.Logger, c domain.Currency, quote domain.CurrencyPrice, at time.Time) bool {
	ok := true
	if err := r.store.UpdateCurrencyPrice(ctx, c.ID, quote); err != nil {
		logger.Error("Failed to update currency price", zap.String("currency", c.Name), zap.Error(err))
		ok = false
	}
	if err := r.store.InsertPriceHistory(ctx, c.Name, quote, at); err != nil {
		logger.Error("Failed to insert price history", zap.String("currency", c.Name), zap.Error(err))
		ok = false
	}
	if ok {
		logger.Info("Currency price updated",
			zap.String("currency", c.Name),
			zap.String("usd", quote.USD.String()),
			zap.String("cny", quote.CNY.String()))
	}
	return ok
}

package notion

import (
	"context"
	"time"

	"github.com/jomei/notionapi"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/finbook/internal/domain"
)

// UpdateAccount overwrites the amount and both currency values of an account.
func (s *Store) UpdateAccount(ctx context.Context, v domain.AccountValuation) error {
	err := s.updatePage(ctx, v.AccountID, notionapi.Properties{
		propAmount: numberValue(v.Amount),
		propUSD:    numberValue(v.USDValue),
		propCNY:    numberValue(v.CNYValue),
	})
	return errors.Wrapf(err, "update account %s", v.AccountID)
}

// UpdateCurrencyPrice overwrites the current price of a currency.
func (s *Store) UpdateCurrencyPrice(ctx context.Context, currencyID string, price domain.CurrencyPrice) error {
	err := s.updatePage(ctx, currencyID, notionapi.Properties{
		propPriceUSD: numberValue(price.USD),
		propPriceCNY: numberValue(price.CNY),
	})
	return errors.Wrapf(err, "update currency %s", currencyID)
}

// InsertPriceHistory appends a dated price row for a currency.
func (s *Store) InsertPriceHistory(ctx context.Context, name string, price domain.CurrencyPrice, at time.Time) error {
	date := notionapi.Date(at)
	err := s.createPage(ctx, s.dbs.CurrencyHistory, notionapi.Properties{
		propName:     titleValue(name),
		propPriceUSD: numberValue(price.USD),
		propPriceCNY: numberValue(price.CNY),
		propHistoryDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &date},
		},
	})
	return errors.Wrapf(err, "insert price history for %s", name)
}

// TrendProperties returns the column names of the trend database.
func (s *Store) TrendProperties(ctx context.Context) (map[string]struct{}, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	db, err := s.databases.Get(ctx, notionapi.DatabaseID(s.dbs.Trend))
	if err != nil {
		return nil, errors.Wrap(err, "retrieve trend database")
	}

	out := make(map[string]struct{}, len(db.Properties))
	for name := range db.Properties {
		out[name] = struct{}{}
	}
	return out, nil
}

// InsertTrend appends a trend row. Only currency names listed in columns are written,
// and never over the total columns.
func (s *Store) InsertTrend(ctx context.Context, entry domain.TrendEntry, columns map[string]struct{}) error {
	props := notionapi.Properties{
		domain.TrendTotalUSD: numberValue(entry.TotalUSD),
		domain.TrendTotalCNY: numberValue(entry.TotalCNY),
	}
	for _, name := range entry.CurrencyNames() {
		if _, ok := columns[name]; !ok || domain.IsTrendTotalColumn(name) {
			continue
		}
		props[name] = numberValue(entry.CurrencyTotals[name])
	}

	return errors.Wrap(s.createPage(ctx, s.dbs.Trend, props), "insert trend row")
}

// Package trend appends a snapshot of the portfolio totals to the finance trend database.
package trend

import (
	"context"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/finbook/internal/domain"
	"github.com/vadiminshakov/finbook/internal/ledger"
	"github.com/vadiminshakov/finbook/internal/services"
)

type trendStore interface {
	Accounts(ctx context.Context) ([]domain.Account, error)
	Currencies(ctx context.Context) ([]domain.Currency, error)
	TrendProperties(ctx context.Context) (map[string]struct{}, error)
	InsertTrend(ctx context.Context, entry domain.TrendEntry, columns map[string]struct{}) error
}

// Recorder totals the stored account values into one trend row.
type Recorder struct {
	store trendStore
	now   func() time.Time
}

func NewRecorder(store trendStore) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

func (r *Recorder) Kind() domain.RunKind { return domain.RunTrend }

// Run reads the account values written by the last reconciliation and records their totals.
func (r *Recorder) Run(ctx context.Context, logger *zap.Logger) (services.Result, error) {
	accounts, err := r.store.Accounts(ctx)
	if err != nil {
		return services.Result{}, errors.Wrap(err, "fetch accounts")
	}
	currencies, err := r.store.Currencies(ctx)
	if err != nil {
		return services.Result{}, errors.Wrap(err, "fetch currencies")
	}

	names := make(map[string]string, len(currencies))
	for _, c := range currencies {
		names[c.ID] = c.Name
	}

	entry := ledger.Totals(r.now(), accounts, names)

	columns, err := r.store.TrendProperties(ctx)
	if err != nil {
		return services.Result{}, errors.Wrap(err, "fetch trend columns")
	}
	for _, name := range entry.CurrencyNames() {
		if domain.IsTrendTotalColumn(name) {
			logger.Warn("Currency name clashes with a total column, amount not recorded", zap.String("currency", name))
			continue
		}
		if _, ok := columns[name]; !ok {
			logger.Warn("Trend database has no column for currency", zap.String("currency", name))
		}
	}

	if err := r.store.InsertTrend(ctx, entry, columns); err != nil {
		return services.Result{Failed: 1}, err
	}

	logger.Info("Trend recorded",
		zap.String("usd", FormatUSD(entry.TotalUSD)),
		zap.String("cny", FormatCNY(entry.TotalCNY)),
		zap.Int("currencies", len(entry.CurrencyTotals)))
	return services.Result{Updated: 1}, nil
}

// FormatUSD renders a USD total rounded to cents, e.g. "$1,234.56".
func FormatUSD(d decimal.Decimal) string {
	return money.New(cents(d), money.USD).Display()
}

// FormatCNY renders a CNY total rounded to fen.
func FormatCNY(d decimal.Decimal) string {
	return money.New(cents(d), money.CNY).Display()
}

func cents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

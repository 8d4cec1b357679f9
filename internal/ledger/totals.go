package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/finbook/internal/domain"
)

// Totals aggregates stored account values into a trend entry.
// Amounts are summed per currency name; accounts whose currency is unknown
// still count towards the USD and CNY totals.
func Totals(at time.Time, accounts []domain.Account, currencyNames map[string]string) domain.TrendEntry {
	entry := domain.TrendEntry{
		Time:           at,
		TotalUSD:       decimal.Zero,
		TotalCNY:       decimal.Zero,
		CurrencyTotals: make(map[string]decimal.Decimal),
	}

	for _, account := range accounts {
		if name, ok := currencyNames[account.CurrencyID]; ok && account.CurrencyID != "" {
			entry.CurrencyTotals[name] = entry.CurrencyTotals[name].Add(account.Amount)
		}
		entry.TotalUSD = entry.TotalUSD.Add(account.USDValue)
		entry.TotalCNY = entry.TotalCNY.Add(account.CNYValue)
	}

	return entry
}

package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Column names of the trend totals. A currency with one of these names cannot
// get its own column.
const (
	TrendTotalUSD = "USD"
	TrendTotalCNY = "CNY"
)

// IsTrendTotalColumn reports whether name is taken by a total column.
func IsTrendTotalColumn(name string) bool {
	return name == TrendTotalUSD || name == TrendTotalCNY
}

// TrendEntry aggregated totals appended to the finance trend log.
type TrendEntry struct {
	Time     time.Time
	TotalUSD decimal.Decimal
	TotalCNY decimal.Decimal
	// CurrencyTotals summed account amounts keyed by currency name.
	CurrencyTotals map[string]decimal.Decimal
}

// CurrencyNames returns the currency names in a stable order.
func (e TrendEntry) CurrencyNames() []string {
	names := make([]string, 0, len(e.CurrencyTotals))
	for name := range e.CurrencyTotals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

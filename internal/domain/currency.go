package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyPrice unit price of a currency in USD and CNY.
type CurrencyPrice struct {
	USD decimal.Decimal `json:"usd"`
	CNY decimal.Decimal `json:"cny"`
}

// Currency is a tracked currency record.
type Currency struct {
	ID   string
	Name string
	// CoinID identifier of the currency in the price feed.
	CoinID string
	Price  CurrencyPrice
}

// FeedKey returns the normalized price feed identifier.
func (c Currency) FeedKey() string {
	return strings.ToLower(strings.TrimSpace(c.CoinID))
}

// Prices maps currency record id to its unit price.
type Prices map[string]CurrencyPrice

// Lookup returns the price for id; unknown ids price at zero.
func (p Prices) Lookup(id string) CurrencyPrice {
	if price, ok := p[id]; ok {
		return price
	}
	return CurrencyPrice{USD: decimal.Zero, CNY: decimal.Zero}
}

// Quotes maps a price feed coin id to its price.
type Quotes map[string]CurrencyPrice

package domain

import "github.com/shopspring/decimal"

// Account is a ledger account holding one currency.
type Account struct {
	ID   string
	Name string
	// CurrencyID reference to the currency record, empty when not linked.
	CurrencyID string
	Amount     decimal.Decimal
	USDValue   decimal.Decimal
	CNYValue   decimal.Decimal
}

// AccountValuation is the recomputed state written back to an account.
type AccountValuation struct {
	AccountID string
	Amount    decimal.Decimal
	USDValue  decimal.Decimal
	CNYValue  decimal.Decimal
}

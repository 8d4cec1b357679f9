package ledger

import (
	"github.com/vadiminshakov/finbook/internal/domain"
)

// Valuate turns reconciled deltas into the state written back to each account.
// Accounts without a currency are skipped. Accounts no record touched are reset
// to zero, and an unknown currency prices at zero.
func Valuate(accounts []domain.Account, deltas domain.Deltas, prices domain.Prices) []domain.AccountValuation {
	out := make([]domain.AccountValuation, 0, len(accounts))
	for _, account := range accounts {
		if account.CurrencyID == "" {
			continue
		}

		amount := deltas.Get(account.ID)
		price := prices.Lookup(account.CurrencyID)

		out = append(out, domain.AccountValuation{
			AccountID: account.ID,
			Amount:    amount,
			USDValue:  price.USD.Mul(amount),
			CNYValue:  price.CNY.Mul(amount),
		})
	}
	return out
}

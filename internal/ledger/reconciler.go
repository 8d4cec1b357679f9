// Package ledger folds transfer and trade records into per-account balance deltas.
//
// Every pass is a full recompute: the result depends only on the records
// passed in, never on balances stored by an earlier run.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/finbook/internal/domain"
)

// Reconcile folds all transfers, then all trades, into a fresh delta map.
func Reconcile(transfers []domain.Transfer, trades []domain.Trade) domain.Deltas {
	deltas := domain.Deltas{}
	for _, t := range transfers {
		deltas = ApplyTransfer(deltas, t)
	}
	for _, t := range trades {
		deltas = ApplyTrade(deltas, t)
	}
	return deltas
}

// ApplyTransfer returns a new map with the transfer's adjustments added.
// The input map is left untouched.
func ApplyTransfer(deltas domain.Deltas, t domain.Transfer) domain.Deltas {
	next := deltas.Clone()

	switch t.Action {
	case domain.TransferExchange:
		add(next, t.FromAccountID, t.Amount.Neg())
		add(next, t.ToAccountID, t.Credited())
	case domain.TransferIn:
		add(next, t.ToAccountID, t.Amount)
	case domain.TransferOut:
		add(next, t.FromAccountID, t.Amount.Neg())
	}

	if t.HasFee() {
		add(next, t.FeeAccountID, t.FeeAmount.Neg())
	}

	return next
}

// ApplyTrade returns a new map with the trade's adjustments added.
// The input map is left untouched.
func ApplyTrade(deltas domain.Deltas, t domain.Trade) domain.Deltas {
	next := deltas.Clone()

	if t.Type == domain.TradePerp {
		win := decimal.Zero
		if t.Win != nil {
			win = *t.Win
		}
		add(next, t.BaseAccountID, win)
		return next
	}

	switch t.Side {
	case domain.SideBuy:
		add(next, t.AssetAccountID, t.Amount)
		add(next, t.BaseAccountID, t.Notional().Neg())
	case domain.SideSell:
		add(next, t.BaseAccountID, t.Notional())
		add(next, t.AssetAccountID, t.Amount.Neg())
	}

	if t.HasFee() {
		add(next, t.FeeAccountID, t.Fee.Neg())
	}

	return next
}

// add is a no-op for an unlinked account so no spurious key appears.
func add(deltas domain.Deltas, accountID string, v decimal.Decimal) {
	if accountID == "" {
		return
	}
	deltas[accountID] = deltas.Get(accountID).Add(v)
}

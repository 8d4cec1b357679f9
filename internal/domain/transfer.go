package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TransferAction is the kind of a wallet transfer.
type TransferAction int

const (
	TransferUnknown TransferAction = iota
	TransferIn
	TransferOut
	TransferExchange
)

const (
	transferStringIn       = "IN"
	transferStringOut      = "OUT"
	transferStringExchange = "EXCHANGE"
)

// ParseTransferAction maps a select option name to a TransferAction.
// Unrecognized names yield TransferUnknown.
func ParseTransferAction(s string) TransferAction {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case transferStringIn:
		return TransferIn
	case transferStringOut:
		return TransferOut
	case transferStringExchange:
		return TransferExchange
	}
	return TransferUnknown
}

// String returns the string representation of the action
func (a TransferAction) String() string {
	switch a {
	case TransferIn:
		return transferStringIn
	case TransferOut:
		return transferStringOut
	case TransferExchange:
		return transferStringExchange
	default:
		return "unknown"
	}
}

// Transfer is a wallet record moving funds into, out of or between accounts.
type Transfer struct {
	ID     string
	Action TransferAction
	// FromAccountID source account, empty when not linked.
	FromAccountID string
	// ToAccountID destination account, empty when not linked.
	ToAccountID string
	// Amount in the source account's unit for EXCHANGE.
	Amount decimal.Decimal
	// ToAmount amount credited to the destination on EXCHANGE, nil when absent.
	ToAmount     *decimal.Decimal
	FeeAccountID string
	FeeAmount    *decimal.Decimal
}

// HasFee reports whether both sides of the fee rule are present.
func (t Transfer) HasFee() bool {
	return t.FeeAccountID != "" && t.FeeAmount != nil
}

// Credited returns the amount the destination receives.
func (t Transfer) Credited() decimal.Decimal {
	if t.Action == TransferExchange && t.ToAmount != nil {
		return *t.ToAmount
	}
	return t.Amount
}

func (t Transfer) String() string {
	return fmt.Sprintf("%s %s from=%q to=%q", t.Action, t.Amount.String(), t.FromAccountID, t.ToAccountID)
}

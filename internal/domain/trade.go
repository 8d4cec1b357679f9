package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TradeType distinguishes spot exchanges from perpetual settlements.
type TradeType int

const (
	TradeSpot TradeType = iota
	TradePerp
)

// ParseTradeType maps a select option name to a TradeType.
// Empty or unknown names are treated as spot, the only kind older trade tables know.
func ParseTradeType(s string) TradeType {
	if strings.EqualFold(strings.TrimSpace(s), "perp") {
		return TradePerp
	}
	return TradeSpot
}

func (t TradeType) String() string {
	if t == TradePerp {
		return "Perp"
	}
	return "Spot"
}

// TradeSide buy or sell, meaningful for spot trades only.
type TradeSide int

const (
	SideUnknown TradeSide = iota
	SideBuy
	SideSell
)

// ParseTradeSide accepts Buy/Sell as well as the legacy IN/OUT spelling.
func ParseTradeSide(s string) TradeSide {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "IN":
		return SideBuy
	case "SELL", "OUT":
		return SideSell
	}
	return SideUnknown
}

func (s TradeSide) String() string {
	switch s {
	case SideBuy:
		return "Buy"
	case SideSell:
		return "Sell"
	default:
		return "unknown"
	}
}

// Trade is a spot exchange between a base and an asset account, or a perp settlement.
type Trade struct {
	ID             string
	Type           TradeType
	Side           TradeSide
	BaseAccountID  string
	AssetAccountID string
	// Amount quantity of the asset.
	Amount decimal.Decimal
	// Price of one asset unit in base units.
	Price        decimal.Decimal
	Fee          *decimal.Decimal
	FeeAccountID string
	// Win signed profit or loss of a perp settlement, nil when absent.
	Win *decimal.Decimal
}

// HasFee reports whether both sides of the fee rule are present.
func (t Trade) HasFee() bool {
	return t.FeeAccountID != "" && t.Fee != nil
}

// Notional returns price*amount in base units.
func (t Trade) Notional() decimal.Decimal {
	return t.Price.Mul(t.Amount)
}

func (t Trade) String() string {
	return fmt.Sprintf("%s %s amount: %s price: %s", t.Type, t.Side, t.Amount.String(), t.Price.String())
}

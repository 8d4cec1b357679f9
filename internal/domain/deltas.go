package domain

import "github.com/shopspring/decimal"

// Deltas maps account id to the net signed balance change of a reconciliation pass.
type Deltas map[string]decimal.Decimal

// Get returns the delta for id, zero for untouched accounts.
func (d Deltas) Get(id string) decimal.Decimal {
	if v, ok := d[id]; ok {
		return v
	}
	return decimal.Zero
}

// Clone returns an independent copy.
func (d Deltas) Clone() Deltas {
	out := make(Deltas, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Equal reports whether both maps hold the same keys with numerically equal values.
func (d Deltas) Equal(other Deltas) bool {
	if len(d) != len(other) {
		return false
	}
	for k, v := range d {
		ov, ok := other[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

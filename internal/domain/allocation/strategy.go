// Package allocation provides the lot allocation engine: given a required
// quantity and a unit type, it plans which lots satisfy the requirement.
// Planning is read-only and may be called speculatively.
package allocation

import (
	"bytes"
	"sort"

	"pharmacore/internal/domain/lots"
)

// Strategy selects the order in which lots are consumed.
type Strategy string

const (
	// StrategyFEFO is first-expiry-first-out: ascending expiry date,
	// ties broken by creation order.
	StrategyFEFO Strategy = "FEFO"
	// StrategyFIFO is first-in-first-out: ascending manufacture date,
	// ties broken by creation order.
	StrategyFIFO Strategy = "FIFO"
	// StrategyReceipt consumes lots in creation order only.
	StrategyReceipt Strategy = "RECEIPT"
)

// IsValid reports whether the strategy is one of the known values.
func (s Strategy) IsValid() bool {
	return s == StrategyFEFO || s == StrategyFIFO || s == StrategyReceipt
}

func (s Strategy) String() string { return string(s) }

// AllStrategies returns every supported ordering strategy.
func AllStrategies() []Strategy {
	return []Strategy{StrategyFEFO, StrategyFIFO, StrategyReceipt}
}

// sortLots orders lots for consumption. Creation order is the UUIDv7 lot id
// order (time-ordered), which serves as the tie-break everywhere.
func sortLots(ls []lots.Lot, strategy Strategy) {
	byCreation := func(a, b *lots.Lot) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	}

	sort.SliceStable(ls, func(i, j int) bool {
		a, b := &ls[i], &ls[j]
		switch strategy {
		case StrategyFEFO:
			if !a.ExpiryDate.Equal(b.ExpiryDate) {
				return a.ExpiryDate.Before(b.ExpiryDate)
			}
		case StrategyFIFO:
			if !a.MfgDate.Equal(b.MfgDate) {
				return a.MfgDate.Before(b.MfgDate)
			}
		}
		return byCreation(a, b) < 0
	})
}

// Package lowstock implements the dual-unit stock-sufficiency policy as a
// single decision table. The pure predicate and the SQL filter are both
// generated from that table, so the two forms cannot drift apart; every
// caller (dashboard counts, alerting, bulk queries) goes through here.
package lowstock

import (
	"github.com/Masterminds/squirrel"

	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/catalogs/medicine"
)

// rule is one row of the policy decision table. Rules are evaluated in
// order; the first matching guard decides which quantities are compared.
// Guards are mutually exclusive, so the SQL form is a plain OR of rows.
type rule struct {
	guard    func(m *medicine.Medicine) bool
	guardSQL squirrel.Sqlizer

	qty    func(m *medicine.Medicine) types.Quantity
	qtyCol string

	min    func(m *medicine.Medicine) types.Quantity
	minCol string
}

// The policy, in priority order:
//  1. both unit types enabled: strips only. Individual pieces are cut-down
//     strips, comparing them too would double-count a shortage
//  2. strips only
//  3. individual only
//  4. legacy record (neither flag): flat legacy quantity
var rules = []rule{
	{
		guard:    func(m *medicine.Medicine) bool { return m.HasStrips && m.HasIndividual },
		guardSQL: squirrel.Eq{"has_strips": true, "has_individual": true},
		qty:      func(m *medicine.Medicine) types.Quantity { return m.StripQuantity },
		qtyCol:   "strip_quantity",
		min:      func(m *medicine.Medicine) types.Quantity { return m.StripMinQuantity },
		minCol:   "strip_min_quantity",
	},
	{
		guard:    func(m *medicine.Medicine) bool { return m.HasStrips && !m.HasIndividual },
		guardSQL: squirrel.Eq{"has_strips": true, "has_individual": false},
		qty:      func(m *medicine.Medicine) types.Quantity { return m.StripQuantity },
		qtyCol:   "strip_quantity",
		min:      func(m *medicine.Medicine) types.Quantity { return m.StripMinQuantity },
		minCol:   "strip_min_quantity",
	},
	{
		guard:    func(m *medicine.Medicine) bool { return !m.HasStrips && m.HasIndividual },
		guardSQL: squirrel.Eq{"has_strips": false, "has_individual": true},
		qty:      func(m *medicine.Medicine) types.Quantity { return m.IndividualQuantity },
		qtyCol:   "individual_quantity",
		min:      func(m *medicine.Medicine) types.Quantity { return m.IndividualMinQuantity },
		minCol:   "individual_min_quantity",
	},
	{
		guard:    func(m *medicine.Medicine) bool { return !m.HasStrips && !m.HasIndividual },
		guardSQL: squirrel.Eq{"has_strips": false, "has_individual": false},
		qty:      func(m *medicine.Medicine) types.Quantity { return m.LegacyQuantity },
		qtyCol:   "legacy_quantity",
		min:      func(m *medicine.Medicine) types.Quantity { return m.LegacyMinQuantity },
		minCol:   "legacy_min_quantity",
	},
}

// IsLowStock reports whether the medicine is at or below its minimum.
// The comparison is inclusive: quantity == minimum counts as low.
// Inactive medicines are never low stock.
func IsLowStock(m *medicine.Medicine) bool {
	if !m.Active {
		return false
	}
	for _, r := range rules {
		if r.guard(m) {
			return r.qty(m) <= r.min(m)
		}
	}
	return false
}

// Filter returns the SQL form of the policy, mechanically derived from the
// same decision table as IsLowStock. Apply it to a query over the medicine
// table.
func Filter() squirrel.Sqlizer {
	var branches squirrel.Or
	for _, r := range rules {
		branches = append(branches, squirrel.And{
			r.guardSQL,
			squirrel.Expr(r.qtyCol + " <= " + r.minCol),
		})
	}
	return squirrel.And{
		squirrel.Eq{"active": true},
		branches,
	}
}

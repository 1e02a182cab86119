package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/catalogs/supplier"
	"pharmacore/internal/domain/lots"
	"pharmacore/pkg/logger"
)

// Selection is one lot's contribution to a plan.
type Selection struct {
	LotID      id.ID          `json:"lotId"`
	LotNumber  string         `json:"lotNumber"`
	Quantity   types.Quantity `json:"quantity"`
	ExpiryDate time.Time      `json:"expiryDate"`
	MfgDate    time.Time      `json:"mfgDate"`
	Location   string         `json:"location,omitempty"`
	Supplier   supplier.Ref   `json:"supplierRef"`
	UnitCost   types.Money    `json:"unitCost"`
}

// Plan is the result of a planning call. It carries enough for the caller
// to either commit the deduction or present a can't-fulfill decision.
type Plan struct {
	MedicineID id.ID          `json:"medicineId"`
	StoreID    id.ID          `json:"storeId"`
	Unit       types.UnitType `json:"unitType"`
	Strategy   Strategy       `json:"strategy"`

	Selections []Selection `json:"selections"`

	TotalRequested types.Quantity `json:"totalRequested"`
	TotalSelected  types.Quantity `json:"totalSelected"`
	Shortfall      types.Quantity `json:"shortfall"`
	CanFulfill     bool           `json:"canFulfill"`

	// WeightedAverageCost of the selected quantity, zero when nothing was
	// selected. Carried through for downstream costing only.
	WeightedAverageCost types.Money `json:"weightedAverageCost"`
}

// Engine plans lot allocations. It holds no state beyond its storage
// dependency and never mutates anything.
type Engine struct {
	lots lots.Repository
}

// NewEngine creates a new allocation engine.
func NewEngine(lotRepo lots.Repository) *Engine {
	return &Engine{lots: lotRepo}
}

// Allocate greedily consumes lots in strategy order until the requirement is
// met or lots are exhausted. Expired lots are always excluded.
//
// An empty lot set is not an error: the plan reports CanFulfill=false and
// the full shortfall, so callers can surface the decision to a user.
func (e *Engine) Allocate(ctx context.Context, medicineID, storeID id.ID, unit types.UnitType, required types.Quantity, strategy Strategy) (Plan, error) {
	plan := Plan{
		MedicineID:     medicineID,
		StoreID:        storeID,
		Unit:           unit,
		Strategy:       strategy,
		TotalRequested: required,
	}

	if !required.IsPositive() {
		return plan, apperror.NewInvalidQuantity(required.Int64())
	}
	if !unit.IsValid() {
		return plan, apperror.NewValidation(fmt.Sprintf("unknown unit type %q", unit))
	}
	if !strategy.IsValid() {
		return plan, apperror.NewValidation(fmt.Sprintf("unknown allocation strategy %q", strategy))
	}

	available, err := e.lots.FindActive(ctx, lots.Filter{
		MedicineID:     medicineID,
		StoreID:        storeID,
		Unit:           unit,
		ExcludeExpired: true,
	})
	if err != nil {
		return plan, fmt.Errorf("find active lots: %w", err)
	}

	sortLots(available, strategy)

	remaining := required
	totalCost := decimal.Zero
	for i := range available {
		if remaining.IsZero() {
			break
		}
		lot := &available[i]
		take := remaining.Min(lot.QuantityFor(unit))
		if !take.IsPositive() {
			continue
		}

		plan.Selections = append(plan.Selections, Selection{
			LotID:      lot.ID,
			LotNumber:  lot.LotNumber,
			Quantity:   take,
			ExpiryDate: lot.ExpiryDate,
			MfgDate:    lot.MfgDate,
			Location:   lot.Location,
			Supplier:   lot.Supplier,
			UnitCost:   lot.UnitCost,
		})
		totalCost = totalCost.Add(lot.UnitCost.Mul(decimal.NewFromInt(take.Int64())))
		plan.TotalSelected += take
		remaining -= take
	}

	plan.Shortfall = required - plan.TotalSelected
	plan.CanFulfill = plan.Shortfall.IsZero()
	if plan.TotalSelected.IsPositive() {
		plan.WeightedAverageCost = totalCost.Div(decimal.NewFromInt(plan.TotalSelected.Int64()))
	}

	if !plan.CanFulfill {
		logger.Debug(ctx, "allocation cannot be fulfilled",
			"medicine_id", medicineID,
			"unit", unit,
			"requested", required,
			"selected", plan.TotalSelected,
			"shortfall", plan.Shortfall,
		)
	}

	return plan, nil
}

// CanFulfill is a convenience availability check: it plans without
// committing and reports only the decision.
func (e *Engine) CanFulfill(ctx context.Context, medicineID, storeID id.ID, unit types.UnitType, required types.Quantity) (bool, error) {
	plan, err := e.Allocate(ctx, medicineID, storeID, unit, required, StrategyFEFO)
	if err != nil {
		return false, err
	}
	return plan.CanFulfill, nil
}

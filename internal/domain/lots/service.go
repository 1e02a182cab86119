package lots

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/catalogs/supplier"
	"pharmacore/pkg/logger"
)

// CreateLotInput carries the fields for registering a received batch.
type CreateLotInput struct {
	MedicineID id.ID     `validate:"required"`
	StoreID    id.ID     `validate:"required"`
	LotNumber  string    `validate:"required"`
	MfgDate    time.Time `validate:"required"`
	ExpiryDate time.Time `validate:"required"`

	StripQuantity      types.Quantity `validate:"gte=0"`
	IndividualQuantity types.Quantity `validate:"gte=0"`

	Location string
	Supplier supplier.Ref
	UnitCost types.Money
}

// FindOptions tunes FindActiveLots.
type FindOptions struct {
	ExcludeExpired bool
	ExpiredOnly    bool
}

// Service provides business operations for the batch registry.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService creates a new lot store service.
func NewService(repo Repository) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
	}
}

// CreateLot registers a received batch. Fails with DUPLICATE_LOT when an
// active lot with the same (medicine, lot number, store) triple exists.
// The expired flag is derived at write time.
func (s *Service) CreateLot(ctx context.Context, input CreateLotInput) (*Lot, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, apperror.NewValidation("invalid lot input").WithCause(err)
	}

	now := time.Now().UTC()
	lot := &Lot{
		ID:                 id.New(),
		MedicineID:         input.MedicineID,
		StoreID:            input.StoreID,
		LotNumber:          input.LotNumber,
		MfgDate:            input.MfgDate,
		ExpiryDate:         input.ExpiryDate,
		StripQuantity:      input.StripQuantity,
		IndividualQuantity: input.IndividualQuantity,
		Location:           input.Location,
		Supplier:           input.Supplier,
		UnitCost:           input.UnitCost,
		Active:             true,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	lot.Expired = lot.IsExpiredAt(now)

	if err := lot.Validate(ctx); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetByLotNumber(ctx, lot.MedicineID, lot.StoreID, lot.LotNumber); err == nil && existing != nil {
		return nil, apperror.NewDuplicateLot(lot.LotNumber).
			WithDetail("medicine_id", lot.MedicineID.String())
	} else if err != nil && !apperror.IsNotFound(err) {
		return nil, fmt.Errorf("check duplicate lot: %w", err)
	}

	if err := s.repo.Create(ctx, lot); err != nil {
		return nil, fmt.Errorf("create lot: %w", err)
	}

	logger.Info(ctx, "lot created",
		"lot_id", lot.ID,
		"lot_number", lot.LotNumber,
		"medicine_id", lot.MedicineID,
		"strip_qty", lot.StripQuantity,
		"individual_qty", lot.IndividualQuantity,
	)

	return lot, nil
}

// Deactivate soft-deletes a lot, preserving ledger referential integrity.
func (s *Service) Deactivate(ctx context.Context, lotID id.ID) error {
	if err := s.repo.Deactivate(ctx, lotID); err != nil {
		return fmt.Errorf("deactivate lot: %w", err)
	}
	logger.Info(ctx, "lot deactivated", "lot_id", lotID)
	return nil
}

// FindActiveLots returns active lots with positive quantity in the unit.
func (s *Service) FindActiveLots(ctx context.Context, medicineID, storeID id.ID, unit types.UnitType, opts FindOptions) ([]Lot, error) {
	if !unit.IsValid() {
		return nil, apperror.NewValidation(fmt.Sprintf("unknown unit type %q", unit))
	}
	return s.repo.FindActive(ctx, Filter{
		MedicineID:     medicineID,
		StoreID:        storeID,
		Unit:           unit,
		ExcludeExpired: opts.ExcludeExpired,
		ExpiredOnly:    opts.ExpiredOnly,
	})
}

// RefreshExpiredStatus flips expired=true for every active lot whose expiry
// date has passed. Idempotent; safe to run repeatedly and concurrently.
// Scoped to one store when storeID is non-nil.
func (s *Service) RefreshExpiredStatus(ctx context.Context, storeID *id.ID) (int64, error) {
	flipped, err := s.repo.MarkExpired(ctx, storeID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark expired lots: %w", err)
	}
	if flipped > 0 {
		logger.Info(ctx, "expired status refreshed", "lots_flipped", flipped)
	}
	return flipped, nil
}

// ExpiringWithin lists active lots approaching expiry, soonest first.
func (s *Service) ExpiringWithin(ctx context.Context, storeID id.ID, window time.Duration) ([]Lot, error) {
	return s.repo.ExpiringWithin(ctx, storeID, window)
}

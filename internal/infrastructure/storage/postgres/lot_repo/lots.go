// Package lot_repo provides the PostgreSQL implementation of the batch
// registry repository.
package lot_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/lots"
	"pharmacore/internal/infrastructure/storage/postgres"
)

const lotsTable = "inv_lots"

// uniqueActiveLotConstraint is the partial unique index over
// (medicine_id, store_id, lower(lot_number)) WHERE active.
const uniqueActiveLotConstraint = "inv_lots_active_lot_number_key"

var lotColumns = []string{
	"id", "medicine_id", "store_id", "lot_number",
	"mfg_date", "expiry_date",
	"strip_quantity", "individual_quantity",
	"location", "supplier_ref", "unit_cost",
	"active", "expired",
	"version", "created_at", "updated_at",
}

// LotRepo implements lots.Repository.
type LotRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewLotRepo creates a new lot repository.
func NewLotRepo(txm *postgres.TxManager) *LotRepo {
	return &LotRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ lots.Repository = (*LotRepo)(nil)

func (r *LotRepo) Create(ctx context.Context, l *lots.Lot) error {
	q := r.builder.Insert(lotsTable).
		Columns(lotColumns...).
		Values(
			l.ID, l.MedicineID, l.StoreID, l.LotNumber,
			l.MfgDate, l.ExpiryDate,
			l.StripQuantity, l.IndividualQuantity,
			l.Location, l.Supplier, l.UnitCost,
			l.Active, l.Expired,
			l.Version, l.CreatedAt, l.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, uniqueActiveLotConstraint) {
			return apperror.NewDuplicateLot(l.LotNumber)
		}
		return fmt.Errorf("insert lot: %w", err)
	}
	return nil
}

func (r *LotRepo) GetByID(ctx context.Context, lotID id.ID) (*lots.Lot, error) {
	q := r.builder.Select(lotColumns...).
		From(lotsTable).
		Where(squirrel.Eq{"id": lotID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var l lots.Lot
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &l, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("lot", lotID)
		}
		return nil, fmt.Errorf("get lot: %w", err)
	}
	return &l, nil
}

func (r *LotRepo) GetForUpdate(ctx context.Context, lotID id.ID) (*lots.Lot, error) {
	sql := `
		SELECT id, medicine_id, store_id, lot_number,
		       mfg_date, expiry_date,
		       strip_quantity, individual_quantity,
		       location, supplier_ref, unit_cost,
		       active, expired,
		       version, created_at, updated_at
		FROM inv_lots
		WHERE id = $1
		FOR UPDATE
	`

	var l lots.Lot
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &l, sql, lotID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("lot", lotID)
		}
		return nil, fmt.Errorf("get lot for update: %w", err)
	}
	return &l, nil
}

func (r *LotRepo) GetByLotNumber(ctx context.Context, medicineID, storeID id.ID, lotNumber string) (*lots.Lot, error) {
	q := r.builder.Select(lotColumns...).
		From(lotsTable).
		Where(squirrel.Eq{
			"medicine_id": medicineID,
			"store_id":    storeID,
			"active":      true,
		}).
		Where(squirrel.Expr("lower(lot_number) = lower(?)", lotNumber)).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var l lots.Lot
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &l, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("lot", lotNumber)
		}
		return nil, fmt.Errorf("get lot by number: %w", err)
	}
	return &l, nil
}

func (r *LotRepo) FindActive(ctx context.Context, filter lots.Filter) ([]lots.Lot, error) {
	q := r.builder.Select(lotColumns...).
		From(lotsTable).
		Where(squirrel.Eq{"active": true})

	if !id.IsNil(filter.MedicineID) {
		q = q.Where(squirrel.Eq{"medicine_id": filter.MedicineID})
	}
	if !id.IsNil(filter.StoreID) {
		q = q.Where(squirrel.Eq{"store_id": filter.StoreID})
	}
	switch filter.Unit {
	case types.UnitStrip:
		q = q.Where(squirrel.Gt{"strip_quantity": 0})
	case types.UnitIndividual:
		q = q.Where(squirrel.Gt{"individual_quantity": 0})
	}

	// Expiry is compared against the date, not the advisory expired flag.
	now := time.Now().UTC()
	if filter.ExcludeExpired {
		q = q.Where(squirrel.GtOrEq{"expiry_date": now})
	}
	if filter.ExpiredOnly {
		q = q.Where(squirrel.Lt{"expiry_date": now})
	}

	// UUIDv7 ids order by creation within equal timestamps
	q = q.OrderBy("created_at", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var result []lots.Lot
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &result, sql, args...); err != nil {
		return nil, fmt.Errorf("select lots: %w", err)
	}
	return result, nil
}

func (r *LotRepo) UpdateQuantities(ctx context.Context, l *lots.Lot) error {
	q := r.builder.Update(lotsTable).
		Set("strip_quantity", l.StripQuantity).
		Set("individual_quantity", l.IndividualQuantity).
		Set("expired", l.Expired).
		Set("version", l.Version).
		Set("updated_at", l.UpdatedAt).
		Where(squirrel.Eq{"id": l.ID}).
		Where(squirrel.Lt{"version": l.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update lot quantities: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("lot", l.ID)
	}
	return nil
}

func (r *LotRepo) Deactivate(ctx context.Context, lotID id.ID) error {
	q := r.builder.Update(lotsTable).
		Set("active", false).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": lotID, "active": true})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("deactivate lot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("lot", lotID)
	}
	return nil
}

func (r *LotRepo) MarkExpired(ctx context.Context, storeID *id.ID, asOf time.Time) (int64, error) {
	q := r.builder.Update(lotsTable).
		Set("expired", true).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"active": true, "expired": false}).
		Where(squirrel.Lt{"expiry_date": asOf})

	if storeID != nil {
		q = q.Where(squirrel.Eq{"store_id": *storeID})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("mark expired lots: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *LotRepo) SumActiveQuantities(ctx context.Context, medicineID, storeID id.ID) (lots.QuantitySums, error) {
	sql := `
		SELECT COALESCE(SUM(strip_quantity), 0)      AS strip,
		       COALESCE(SUM(individual_quantity), 0) AS individual,
		       COUNT(*)                              AS lot_count
		FROM inv_lots
		WHERE active AND medicine_id = $1 AND store_id = $2
	`

	var sums lots.QuantitySums
	err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, medicineID, storeID).
		Scan(&sums.Strip, &sums.Individual, &sums.LotCount)
	if err != nil {
		return sums, fmt.Errorf("sum lot quantities: %w", err)
	}
	return sums, nil
}

func (r *LotRepo) ExpiringWithin(ctx context.Context, storeID id.ID, window time.Duration) ([]lots.Lot, error) {
	now := time.Now().UTC()
	q := r.builder.Select(lotColumns...).
		From(lotsTable).
		Where(squirrel.Eq{"active": true, "store_id": storeID}).
		Where(squirrel.GtOrEq{"expiry_date": now}).
		Where(squirrel.LtOrEq{"expiry_date": now.Add(window)}).
		OrderBy("expiry_date")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var result []lots.Lot
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &result, sql, args...); err != nil {
		return nil, fmt.Errorf("select expiring lots: %w", err)
	}
	return result, nil
}

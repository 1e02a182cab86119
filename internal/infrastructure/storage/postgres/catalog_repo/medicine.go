// Package catalog_repo provides PostgreSQL implementations for the catalog
// repositories.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/domain/catalogs/medicine"
	"pharmacore/internal/domain/lowstock"
	"pharmacore/internal/infrastructure/storage/postgres"
)

const medicinesTable = "cat_medicines"

var medicineColumns = []string{
	"id", "store_id", "code", "name", "active",
	"has_strips", "has_individual",
	"strip_quantity", "strip_min_quantity", "strip_reorder_quantity",
	"individual_quantity", "individual_min_quantity", "individual_reorder_quantity",
	"legacy_quantity", "legacy_min_quantity",
	"version", "created_at", "updated_at",
}

// MedicineRepo implements medicine.Repository.
type MedicineRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewMedicineRepo creates a new medicine repository.
func NewMedicineRepo(txm *postgres.TxManager) *MedicineRepo {
	return &MedicineRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ medicine.Repository = (*MedicineRepo)(nil)

func (r *MedicineRepo) Create(ctx context.Context, m *medicine.Medicine) error {
	q := r.builder.Insert(medicinesTable).
		Columns(medicineColumns...).
		Values(
			m.ID, m.StoreID, m.Code, m.Name, m.Active,
			m.HasStrips, m.HasIndividual,
			m.StripQuantity, m.StripMinQuantity, m.StripReorderQuantity,
			m.IndividualQuantity, m.IndividualMinQuantity, m.IndividualReorderQuantity,
			m.LegacyQuantity, m.LegacyMinQuantity,
			m.Version, m.CreatedAt, m.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert medicine: %w", err)
	}
	return nil
}

func (r *MedicineRepo) GetByID(ctx context.Context, medicineID id.ID) (*medicine.Medicine, error) {
	q := r.builder.Select(medicineColumns...).
		From(medicinesTable).
		Where(squirrel.Eq{"id": medicineID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var m medicine.Medicine
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("medicine", medicineID)
		}
		return nil, fmt.Errorf("get medicine: %w", err)
	}
	return &m, nil
}

func (r *MedicineRepo) GetForUpdate(ctx context.Context, medicineID id.ID) (*medicine.Medicine, error) {
	sql := `
		SELECT id, store_id, code, name, active,
		       has_strips, has_individual,
		       strip_quantity, strip_min_quantity, strip_reorder_quantity,
		       individual_quantity, individual_min_quantity, individual_reorder_quantity,
		       legacy_quantity, legacy_min_quantity,
		       version, created_at, updated_at
		FROM cat_medicines
		WHERE id = $1
		FOR UPDATE
	`

	var m medicine.Medicine
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &m, sql, medicineID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("medicine", medicineID)
		}
		return nil, fmt.Errorf("get medicine for update: %w", err)
	}
	return &m, nil
}

func (r *MedicineRepo) GetByName(ctx context.Context, storeID id.ID, name string) (*medicine.Medicine, error) {
	q := r.builder.Select(medicineColumns...).
		From(medicinesTable).
		Where(squirrel.Eq{"store_id": storeID, "active": true}).
		Where(squirrel.Expr("lower(name) = lower(?)", name)).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var m medicine.Medicine
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("medicine", name)
		}
		return nil, fmt.Errorf("get medicine by name: %w", err)
	}
	return &m, nil
}

func (r *MedicineRepo) UpdateStock(ctx context.Context, m *medicine.Medicine) error {
	q := r.builder.Update(medicinesTable).
		Set("strip_quantity", m.StripQuantity).
		Set("individual_quantity", m.IndividualQuantity).
		Set("legacy_quantity", m.LegacyQuantity).
		Set("version", m.Version).
		Set("updated_at", m.UpdatedAt).
		Where(squirrel.Eq{"id": m.ID}).
		Where(squirrel.Lt{"version": m.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update medicine stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("medicine", m.ID)
	}
	return nil
}

func (r *MedicineRepo) ListIDs(ctx context.Context, storeID id.ID) ([]id.ID, error) {
	q := r.builder.Select("id").
		From(medicinesTable).
		Where(squirrel.Eq{"store_id": storeID, "active": true}).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var ids []id.ID
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("select medicine ids: %w", err)
	}
	return ids, nil
}

func (r *MedicineRepo) CountLowStock(ctx context.Context, storeID id.ID) (int, error) {
	q := r.builder.Select("COUNT(*)").
		From(medicinesTable).
		Where(squirrel.Eq{"store_id": storeID}).
		Where(lowstock.Filter())

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var count int
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count low stock: %w", err)
	}
	return count, nil
}

func (r *MedicineRepo) ListLowStock(ctx context.Context, storeID id.ID, limit, offset int) ([]medicine.Medicine, error) {
	q := r.builder.Select(medicineColumns...).
		From(medicinesTable).
		Where(squirrel.Eq{"store_id": storeID}).
		Where(lowstock.Filter()).
		OrderBy("lower(name)")

	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var result []medicine.Medicine
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &result, sql, args...); err != nil {
		return nil, fmt.Errorf("select low stock medicines: %w", err)
	}
	return result, nil
}

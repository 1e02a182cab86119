package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/domain/catalogs/supplier"
	"pharmacore/internal/infrastructure/storage/postgres"
)

const suppliersTable = "cat_suppliers"

var supplierColumns = []string{
	"id", "store_id", "code", "name", "phone", "email",
	"active", "version", "created_at", "updated_at",
}

// SupplierRepo implements supplier.Repository.
type SupplierRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewSupplierRepo creates a new supplier repository.
func NewSupplierRepo(txm *postgres.TxManager) *SupplierRepo {
	return &SupplierRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ supplier.Repository = (*SupplierRepo)(nil)

func (r *SupplierRepo) Create(ctx context.Context, s *supplier.Supplier) error {
	q := r.builder.Insert(suppliersTable).
		Columns(supplierColumns...).
		Values(
			s.ID, s.StoreID, s.Code, s.Name, s.Phone, s.Email,
			s.Active, s.Version, s.CreatedAt, s.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert supplier: %w", err)
	}
	return nil
}

func (r *SupplierRepo) GetByID(ctx context.Context, supplierID id.ID) (*supplier.Supplier, error) {
	q := r.builder.Select(supplierColumns...).
		From(suppliersTable).
		Where(squirrel.Eq{"id": supplierID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var s supplier.Supplier
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("supplier", supplierID)
		}
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	return &s, nil
}

func (r *SupplierRepo) GetByName(ctx context.Context, storeID id.ID, name string) (*supplier.Supplier, error) {
	q := r.builder.Select(supplierColumns...).
		From(suppliersTable).
		Where(squirrel.Eq{"store_id": storeID, "active": true}).
		Where(squirrel.Expr("lower(name) = lower(?)", name)).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var s supplier.Supplier
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("supplier", name)
		}
		return nil, fmt.Errorf("get supplier by name: %w", err)
	}
	return &s, nil
}

func (r *SupplierRepo) Update(ctx context.Context, s *supplier.Supplier) error {
	q := r.builder.Update(suppliersTable).
		Set("code", s.Code).
		Set("name", s.Name).
		Set("phone", s.Phone).
		Set("email", s.Email).
		Set("active", s.Active).
		Set("version", s.Version).
		Set("updated_at", s.UpdatedAt).
		Where(squirrel.Eq{"id": s.ID}).
		Where(squirrel.Lt{"version": s.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update supplier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("supplier", s.ID)
	}
	return nil
}

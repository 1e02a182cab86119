// Package return_repo provides the PostgreSQL implementation of the purchase
// return repository.
package return_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/domain/returns"
	"pharmacore/internal/infrastructure/storage/postgres"
)

const (
	returnsTable     = "doc_purchase_returns"
	returnItemsTable = "doc_purchase_return_items"
)

var returnColumns = []string{
	"id", "store_id", "number", "status", "restoration_status",
	"supplier_id", "completed_at",
	"version", "created_at", "updated_at",
}

var itemColumns = []string{
	"id", "return_id", "line_no",
	"purchase_line_id", "medicine_id", "medicine_name",
	"quantity", "unit_type", "remove_from_inventory",
	"lot_number", "lot_expiry",
	"inventory_updated", "prev_quantity", "new_quantity", "skip_reason",
}

// ReturnRepo implements returns.Repository.
type ReturnRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewReturnRepo creates a new return repository.
func NewReturnRepo(txm *postgres.TxManager) *ReturnRepo {
	return &ReturnRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ returns.Repository = (*ReturnRepo)(nil)

func (r *ReturnRepo) Create(ctx context.Context, pr *returns.PurchaseReturn) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		q := r.builder.Insert(returnsTable).
			Columns(returnColumns...).
			Values(
				pr.ID, pr.StoreID, pr.Number, pr.Status, pr.RestorationStatus,
				pr.SupplierID, pr.CompletedAt,
				pr.Version, pr.CreatedAt, pr.UpdatedAt,
			)

		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert return: %w", err)
		}

		if len(pr.Items) == 0 {
			return nil
		}

		iq := r.builder.Insert(returnItemsTable).Columns(itemColumns...)
		for _, item := range pr.Items {
			iq = iq.Values(
				item.ID, item.ReturnID, item.LineNo,
				item.PurchaseLineID, item.MedicineID, item.MedicineName,
				item.Quantity, item.Unit, item.RemoveFromInventory,
				item.LotNumber, item.LotExpiry,
				item.InventoryUpdated, item.PrevQuantity, item.NewQuantity, item.SkipReason,
			)
		}

		sql, args, err = iq.ToSql()
		if err != nil {
			return fmt.Errorf("build item insert: %w", err)
		}
		if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert return items: %w", err)
		}
		return nil
	})
}

func (r *ReturnRepo) GetByID(ctx context.Context, returnID id.ID) (*returns.PurchaseReturn, error) {
	return r.get(ctx, returnID, false)
}

func (r *ReturnRepo) GetForUpdate(ctx context.Context, returnID id.ID) (*returns.PurchaseReturn, error) {
	return r.get(ctx, returnID, true)
}

func (r *ReturnRepo) get(ctx context.Context, returnID id.ID, forUpdate bool) (*returns.PurchaseReturn, error) {
	sql := `
		SELECT id, store_id, number, status, restoration_status,
		       supplier_id, completed_at,
		       version, created_at, updated_at
		FROM doc_purchase_returns
		WHERE id = $1
	`
	if forUpdate {
		sql += " FOR UPDATE"
	}

	var pr returns.PurchaseReturn
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &pr, sql, returnID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("purchase return", returnID)
		}
		return nil, fmt.Errorf("get return: %w", err)
	}

	items, err := r.listItems(ctx, returnID)
	if err != nil {
		return nil, err
	}
	pr.Items = items
	return &pr, nil
}

func (r *ReturnRepo) listItems(ctx context.Context, returnID id.ID) ([]returns.ReturnItem, error) {
	q := r.builder.Select(itemColumns...).
		From(returnItemsTable).
		Where(squirrel.Eq{"return_id": returnID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []returns.ReturnItem
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select return items: %w", err)
	}
	return items, nil
}

func (r *ReturnRepo) Update(ctx context.Context, pr *returns.PurchaseReturn) error {
	q := r.builder.Update(returnsTable).
		Set("status", pr.Status).
		Set("restoration_status", pr.RestorationStatus).
		Set("completed_at", pr.CompletedAt).
		Set("version", pr.Version).
		Set("updated_at", pr.UpdatedAt).
		Where(squirrel.Eq{"id": pr.ID}).
		Where(squirrel.Lt{"version": pr.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update return: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("purchase return", pr.ID)
	}
	return nil
}

func (r *ReturnRepo) UpdateItem(ctx context.Context, item *returns.ReturnItem) error {
	q := r.builder.Update(returnItemsTable).
		Set("medicine_id", item.MedicineID).
		Set("inventory_updated", item.InventoryUpdated).
		Set("prev_quantity", item.PrevQuantity).
		Set("new_quantity", item.NewQuantity).
		Set("skip_reason", item.SkipReason).
		Where(squirrel.Eq{"id": item.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update return item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("return item", item.ID)
	}
	return nil
}

// Package ledger_repo provides the PostgreSQL implementation of the stock
// ledger repository.
package ledger_repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"pharmacore/internal/core/id"
	"pharmacore/internal/domain/registers/ledger"
	"pharmacore/internal/infrastructure/storage/postgres"
)

const (
	ledgerTable        = "reg_stock_ledger"
	ledgerArchiveTable = "reg_stock_ledger_archive"
)

var ledgerColumns = []string{
	"id", "medicine_id", "store_id", "kind",
	"unit_type", "delta", "prev_quantity", "new_quantity",
	"doc_kind", "doc_id", "doc_number",
	"actor_id",
	"lot_id", "lot_number", "lot_expiry",
	"created_at",
}

// LedgerRepo implements ledger.Repository. Purged entries are archived as
// zstd-compressed JSON blocks before deletion, so the retention sweep never
// destroys audit data.
type LedgerRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	encoder *zstd.Encoder
}

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txm *postgres.TxManager) (*LedgerRepo, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &LedgerRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		encoder: encoder,
	}, nil
}

var _ ledger.Repository = (*LedgerRepo)(nil)

func (r *LedgerRepo) Append(ctx context.Context, entries []ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	// Fast path: COPY when inside a transaction.
	if tx := r.txm.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txm)
		rows := make([][]any, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, entryRow(e))
		}
		if _, err := inserter.CopyFromSlice(ctx, ledgerTable, ledgerColumns, rows); err != nil {
			return fmt.Errorf("copy ledger entries: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(ledgerTable).Columns(ledgerColumns...)
	for _, e := range entries {
		q = q.Values(entryRow(e)...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert ledger entries: %w", err)
	}
	return nil
}

func entryRow(e ledger.Entry) []any {
	return []any{
		e.ID, e.MedicineID, e.StoreID, e.Kind,
		e.Unit, e.Delta, e.PrevQuantity, e.NewQuantity,
		e.DocKind, e.DocID, e.DocNumber,
		e.ActorID,
		e.LotID, e.LotNumber, e.LotExpiry,
		e.CreatedAt,
	}
}

func (r *LedgerRepo) ListByMedicine(ctx context.Context, medicineID id.ID, filter ledger.Filter) ([]ledger.Entry, error) {
	q := r.builder.Select(ledgerColumns...).
		From(ledgerTable).
		Where(squirrel.Eq{"medicine_id": medicineID})

	if filter.StoreID != nil {
		q = q.Where(squirrel.Eq{"store_id": *filter.StoreID})
	}
	if filter.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": *filter.Kind})
	}
	if filter.Unit != nil {
		q = q.Where(squirrel.Eq{"unit_type": *filter.Unit})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.ToDate})
	}

	q = q.OrderBy("created_at DESC", "id DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []ledger.Entry
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select ledger entries: %w", err)
	}
	return entries, nil
}

// PurgeOlderThan archives and deletes entries created before the cutoff.
// Archive and delete run in one transaction.
func (r *LedgerRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64

	err := r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		q := r.builder.Select(ledgerColumns...).
			From(ledgerTable).
			Where(squirrel.Lt{"created_at": cutoff}).
			OrderBy("created_at")

		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}

		var entries []ledger.Entry
		if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &entries, sql, args...); err != nil {
			return fmt.Errorf("select purgeable entries: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}

		payload, err := json.Marshal(entries)
		if err != nil {
			return fmt.Errorf("marshal archive payload: %w", err)
		}
		compressed := r.encoder.EncodeAll(payload, nil)

		insert := r.builder.Insert(ledgerArchiveTable).
			Columns("id", "entry_count", "from_date", "to_date", "compression_algo", "payload", "created_at").
			Values(
				id.New(), len(entries),
				entries[0].CreatedAt, entries[len(entries)-1].CreatedAt,
				"zstd", compressed, time.Now().UTC(),
			)

		insertSQL, insertArgs, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("build archive insert: %w", err)
		}
		if _, err := r.txm.GetQuerier(ctx).Exec(ctx, insertSQL, insertArgs...); err != nil {
			return fmt.Errorf("insert archive block: %w", err)
		}

		del := r.builder.Delete(ledgerTable).
			Where(squirrel.Lt{"created_at": cutoff})

		delSQL, delArgs, err := del.ToSql()
		if err != nil {
			return fmt.Errorf("build delete: %w", err)
		}
		tag, err := r.txm.GetQuerier(ctx).Exec(ctx, delSQL, delArgs...)
		if err != nil {
			return fmt.Errorf("delete purged entries: %w", err)
		}
		removed = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

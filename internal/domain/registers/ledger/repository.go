package ledger

import (
	"context"
	"time"

	"pharmacore/internal/core/id"
)

// Repository defines operations for the stock ledger.
// The ledger is append-only: no update or single-entry delete exists.
type Repository interface {
	// Append inserts entries in one batch (within the caller's transaction
	// when one is active).
	Append(ctx context.Context, entries []Entry) error

	// ListByMedicine returns entries for a medicine, newest first.
	ListByMedicine(ctx context.Context, medicineID id.ID, filter Filter) ([]Entry, error)

	// PurgeOlderThan removes entries created before the cutoff and returns
	// the number removed. Implementations archive before deleting.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

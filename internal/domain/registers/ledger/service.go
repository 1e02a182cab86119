package ledger

import (
	"context"
	"fmt"
	"time"

	"pharmacore/internal/core/actor"
	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/pkg/logger"
)

// Service provides business operations for the stock ledger.
type Service struct {
	repo Repository
}

// NewService creates a new ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record validates and appends entries. Called inside the mutator's
// transaction so the ledger write commits atomically with the lot change.
//
// The arithmetic invariant new == prev + delta is soft-checked: drift is a
// signal to run the reconciler, not a reason to reject the write.
func (s *Service) Record(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}

	now := time.Now().UTC()
	actorID := actor.IDFromContext(ctx)

	for i := range entries {
		e := &entries[i]
		if !e.Kind.IsValid() {
			return apperror.NewValidation(fmt.Sprintf("entry %d: unknown change kind %q", i, e.Kind))
		}
		if id.IsNil(e.MedicineID) {
			return apperror.NewValidation(fmt.Sprintf("entry %d: medicine is required", i))
		}
		if e.Delta.IsZero() {
			return apperror.NewValidation(fmt.Sprintf("entry %d: delta must be non-zero", i))
		}
		if id.IsNil(e.ID) {
			e.ID = id.New()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.ActorID == "" {
			e.ActorID = actorID
		}

		if e.NewQuantity != e.PrevQuantity+e.Delta {
			logger.Warn(ctx, "ledger arithmetic drift",
				"entry_id", e.ID,
				"medicine_id", e.MedicineID,
				"prev", e.PrevQuantity,
				"delta", e.Delta,
				"new", e.NewQuantity,
			)
		}
	}

	if err := s.repo.Append(ctx, entries); err != nil {
		return fmt.Errorf("append ledger entries: %w", err)
	}

	return nil
}

// History returns ledger entries for a medicine, newest first.
func (s *Service) History(ctx context.Context, medicineID id.ID, filter Filter) ([]Entry, error) {
	return s.repo.ListByMedicine(ctx, medicineID, filter)
}

// Purge removes entries older than the retention period.
func (s *Service) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	removed, err := s.repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge ledger: %w", err)
	}
	if removed > 0 {
		logger.Info(ctx, "purged ledger entries", "removed", removed, "cutoff", cutoff)
	}
	return removed, nil
}

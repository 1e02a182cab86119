package supplier

import (
	"context"
	"fmt"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/pkg/logger"
)

// Service provides supplier lookups for the engine. "Not found" is a
// legitimate answer for a stored reference, never an error.
type Service struct {
	repo Repository
}

// NewService creates a new supplier service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new supplier.
func (s *Service) Create(ctx context.Context, sup *Supplier) error {
	if err := sup.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(sup.ID) {
		sup.ID = id.New()
	}
	if err := s.repo.Create(ctx, sup); err != nil {
		return fmt.Errorf("create supplier: %w", err)
	}
	return nil
}

// Resolve looks up a supplier for a reference. A missing record downgrades
// the reference instead of failing: a resolved id that no longer matches
// becomes unresolved text.
func (s *Service) Resolve(ctx context.Context, ref Ref) (*Supplier, Ref, error) {
	if ref.IsAbsent() {
		return nil, AbsentRef(), nil
	}

	if ref.Kind == RefResolved {
		sup, err := s.repo.GetByID(ctx, ref.ID)
		if err != nil {
			if apperror.IsNotFound(err) {
				logger.Debug(ctx, "supplier reference is stale", "supplier_id", ref.ID)
				return nil, UnresolvedRef(ref.ID.String()), nil
			}
			return nil, ref, fmt.Errorf("get supplier: %w", err)
		}
		return sup, ref, nil
	}

	return nil, ref, nil
}

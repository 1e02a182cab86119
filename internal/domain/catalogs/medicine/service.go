package medicine

import (
	"context"
	"fmt"
	"strings"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
)

// Service provides medicine catalog operations.
type Service struct {
	repo Repository
}

// NewService creates a new medicine service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new medicine.
func (s *Service) Create(ctx context.Context, m *Medicine) error {
	if err := m.Validate(ctx); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return fmt.Errorf("create medicine: %w", err)
	}
	return nil
}

// GetByID returns a medicine by id.
func (s *Service) GetByID(ctx context.Context, medicineID id.ID) (*Medicine, error) {
	return s.repo.GetByID(ctx, medicineID)
}

// ResolveByName is the fallback lookup for return items whose medicine
// reference is absent: case-insensitive exact name within the store.
func (s *Service) ResolveByName(ctx context.Context, storeID id.ID, name string) (*Medicine, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.NewNotFound("medicine", name)
	}
	return s.repo.GetByName(ctx, storeID, name)
}

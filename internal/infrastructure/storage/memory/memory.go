// Package memory provides in-memory implementations of the domain
// repositories. Used by tests and by dev/demo mode when no database is
// configured; behavior mirrors the postgres package, including error codes.
package memory

import (
	"context"
	"sync"
)

// TxManager is a pass-through transaction manager. A single mutex gives the
// same mutual exclusion the row locks give in postgres; rollback is not
// emulated, so fixtures that exercise failure paths assert on state the
// domain code wrote before the error.
type TxManager struct {
	mu sync.Mutex
}

// NewTxManager creates a pass-through transaction manager.
func NewTxManager() *TxManager {
	return &TxManager{}
}

// RunInTransaction executes fn under the store-wide lock.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx)
}

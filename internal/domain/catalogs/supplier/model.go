// Package supplier provides the supplier catalog and the tolerant supplier
// reference used by lots. Supplier references in this domain are frequently
// free-text or stale ids and must never hard-fail a stock operation.
package supplier

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
)

// Supplier is a reference-data record for a goods supplier.
type Supplier struct {
	ID      id.ID  `db:"id" json:"id"`
	StoreID id.ID  `db:"store_id" json:"storeId"`
	Code    string `db:"code" json:"code"`
	Name    string `db:"name" json:"name"`
	Phone   string `db:"phone" json:"phone,omitempty"`
	Email   string `db:"email" json:"email,omitempty"`
	Active  bool   `db:"active" json:"active"`

	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Validate checks catalog invariants.
func (s *Supplier) Validate(ctx context.Context) error {
	if s.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	return nil
}

// RefKind tags the three states a stored supplier reference can be in.
type RefKind string

const (
	// RefResolved holds a valid supplier id
	RefResolved RefKind = "resolved"
	// RefUnresolved holds raw text that never matched a supplier record
	RefUnresolved RefKind = "unresolved"
	// RefAbsent means no supplier was recorded at all
	RefAbsent RefKind = "absent"
)

// Ref is a tagged supplier reference: Resolved(id) | Unresolved(rawText) | Absent.
// Core operations must succeed regardless of which variant they see.
type Ref struct {
	Kind RefKind
	ID   id.ID
	Raw  string
}

// ResolvedRef creates a reference to a known supplier id.
func ResolvedRef(supplierID id.ID) Ref {
	return Ref{Kind: RefResolved, ID: supplierID}
}

// UnresolvedRef wraps free text that did not match any supplier.
func UnresolvedRef(raw string) Ref {
	if raw == "" {
		return AbsentRef()
	}
	return Ref{Kind: RefUnresolved, Raw: raw}
}

// AbsentRef is the empty reference.
func AbsentRef() Ref {
	return Ref{Kind: RefAbsent}
}

// ParseRef classifies a stored reference string. A parseable UUID is treated
// as resolved, empty as absent, anything else as unresolved free text.
func ParseRef(s string) Ref {
	if s == "" {
		return AbsentRef()
	}
	if supplierID, err := id.Parse(s); err == nil {
		return ResolvedRef(supplierID)
	}
	return UnresolvedRef(s)
}

// IsAbsent reports whether no supplier was recorded.
func (r Ref) IsAbsent() bool { return r.Kind == RefAbsent || r.Kind == "" }

// String returns the storage form: uuid for resolved, raw text for
// unresolved, empty for absent.
func (r Ref) String() string {
	switch r.Kind {
	case RefResolved:
		return r.ID.String()
	case RefUnresolved:
		return r.Raw
	default:
		return ""
	}
}

// Value implements driver.Valuer; the reference is stored as text.
func (r Ref) Value() (driver.Value, error) {
	return r.String(), nil
}

// Scan implements sql.Scanner.
func (r *Ref) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = AbsentRef()
		return nil
	case string:
		*r = ParseRef(v)
		return nil
	case []byte:
		*r = ParseRef(string(v))
		return nil
	default:
		return fmt.Errorf("cannot scan supplier ref from %T", src)
	}
}

// MarshalJSON encodes the reference as its storage string.
func (r Ref) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", r.String())), nil
}

// UnmarshalJSON decodes from a JSON string.
func (r *Ref) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*r = AbsentRef()
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		*r = ParseRef(s[1 : len(s)-1])
		return nil
	}
	return fmt.Errorf("supplier ref must be a JSON string")
}

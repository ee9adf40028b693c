package storage

import (
	"context"

	"github.com/stepamak/pump-tracker/internal/domain"
)

// DevListStore provides access to dev_list_entries storage.
type DevListStore interface {
	// Add inserts an entry. Returns ErrDuplicateKey if (kind, address) exists.
	Add(ctx context.Context, e *domain.DevListEntry) error

	// Remove deletes an entry. Returns ErrNotFound if it does not exist.
	Remove(ctx context.Context, kind domain.ListKind, address string) error

	// List returns all entries of kind, ordered by added_at ASC.
	List(ctx context.Context, kind domain.ListKind) ([]*domain.DevListEntry, error)
}

// AdmissionStore provides access to admission_decisions storage.
// Records are append-only; duplicates are not detected.
type AdmissionStore interface {
	// Insert adds one record.
	Insert(ctx context.Context, r *domain.AdmissionRecord) error

	// InsertBulk adds multiple records in one batch.
	InsertBulk(ctx context.Context, rs []*domain.AdmissionRecord) error

	// GetByMint retrieves all decisions for a mint, ordered by decided_at ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.AdmissionRecord, error)
}

// ValidateDevListEntry checks the fields every backend requires.
func ValidateDevListEntry(e *domain.DevListEntry) error {
	if e == nil || e.Address == "" || !e.Kind.IsValid() {
		return ErrInvalidInput
	}
	return nil
}

// ValidateAdmissionRecord checks the fields every backend requires.
func ValidateAdmissionRecord(r *domain.AdmissionRecord) error {
	if r == nil || r.Mint == "" || r.SessionID == "" {
		return ErrInvalidInput
	}
	return nil
}

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/stepamak/pump-tracker/internal/domain"
	"github.com/stepamak/pump-tracker/internal/storage"
)

// AdmissionStore is an in-memory implementation of storage.AdmissionStore.
type AdmissionStore struct {
	mu   sync.RWMutex
	data []*domain.AdmissionRecord
}

// NewAdmissionStore creates a new in-memory admission store.
func NewAdmissionStore() *AdmissionStore {
	return &AdmissionStore{}
}

// Insert adds one record.
func (s *AdmissionStore) Insert(_ context.Context, r *domain.AdmissionRecord) error {
	if err := storage.ValidateAdmissionRecord(r); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *r
	s.data = append(s.data, &recordCopy)
	return nil
}

// InsertBulk adds multiple records. Nothing is stored if any record is invalid.
func (s *AdmissionStore) InsertBulk(_ context.Context, rs []*domain.AdmissionRecord) error {
	for _, r := range rs {
		if err := storage.ValidateAdmissionRecord(r); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rs {
		recordCopy := *r
		s.data = append(s.data, &recordCopy)
	}
	return nil
}

// GetByMint retrieves all decisions for a mint, ordered by decided_at ASC.
func (s *AdmissionStore) GetByMint(_ context.Context, mint string) ([]*domain.AdmissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AdmissionRecord
	for _, r := range s.data {
		if r.Mint == mint {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DecidedAt < result[j].DecidedAt
	})

	return result, nil
}

// Len returns the number of stored records.
func (s *AdmissionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Verify interface compliance at compile time.
var _ storage.AdmissionStore = (*AdmissionStore)(nil)
